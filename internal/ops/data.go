// Package ops loads the locally seeded operational time series (ED,
// ambulance, inpatients, theatres, waiting list) and computes the
// at-a-glance indicators shown to site operations staff.
package ops

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default file names inside the ops data directory.
const (
	FileED          = "ed.csv"
	FileAmbulance   = "ambulance.csv"
	FileInpatients  = "inpatients.csv"
	FileTheatres    = "theatres.csv"
	FileWaitingList = "waiting_list.csv"
)

// EDRecord is one hour of emergency department activity.
type EDRecord struct {
	Date                 time.Time `json:"date"`
	Hour                 int       `json:"hour"`
	Site                 string    `json:"site,omitempty"`
	Arrivals             float64   `json:"arrivals"`
	AdmittedFromED       float64   `json:"admittedFromEd"`
	LeftWithoutBeingSeen float64   `json:"leftWithoutBeingSeen"`
	AmbulanceArrivals    float64   `json:"ambulanceArrivals"`
	SeenWithin4h         float64   `json:"seenWithin4h"`
}

// AmbulanceRecord is one 15-minute handover slot.
type AmbulanceRecord struct {
	Date            time.Time `json:"date"`
	Slot            int       `json:"slot"`
	Arrivals        float64   `json:"arrivals"`
	Queue           float64   `json:"queue"`
	HandoverOver15m float64   `json:"handoverOver15m"`
	HandoverOver30m float64   `json:"handoverOver30m"`
	HandoverOver60m float64   `json:"handoverOver60m"`
}

// InpatientRecord is a daily ward bed state.
type InpatientRecord struct {
	Date                 time.Time `json:"date"`
	Site                 string    `json:"site"`
	Division             string    `json:"division"`
	Ward                 string    `json:"ward"`
	Beds                 float64   `json:"beds"`
	Occupied             float64   `json:"occupied"`
	NCTRMOFD             float64   `json:"nctrMofd"`
	Stranded7d           float64   `json:"stranded7d"`
	SuperStranded21d     float64   `json:"superStranded21d"`
	Admissions           float64   `json:"admissions"`
	Discharges           float64   `json:"discharges"`
	DischargesBeforeNoon float64   `json:"dischargesBeforeNoon"`
}

// TheatreRecord is a daily elective session summary per specialty.
type TheatreRecord struct {
	Date              time.Time `json:"date"`
	Specialty         string    `json:"specialty"`
	Sessions          float64   `json:"sessions"`
	PlannedCases      float64   `json:"plannedCases"`
	CompletedCases    float64   `json:"completedCases"`
	CancelledOnTheDay float64   `json:"cancelledOnTheDay"`
}

// WaitingListRecord is a waiting list snapshot.
type WaitingListRecord struct {
	Date         time.Time `json:"date"`
	Specialty    string    `json:"specialty,omitempty"`
	TotalWaiting float64   `json:"totalWaiting"`
	Over52Weeks  float64   `json:"over52Weeks"`
	Over65Weeks  float64   `json:"over65Weeks"`
	Over78Weeks  float64   `json:"over78Weeks"`
}

// Data holds every operational series.
type Data struct {
	ED          []EDRecord
	Ambulance   []AmbulanceRecord
	Inpatients  []InpatientRecord
	Theatres    []TheatreRecord
	WaitingList []WaitingListRecord
}

// Load reads the five operational CSV files from dir.
func Load(dir string) (*Data, error) {
	d := &Data{}

	if err := readFile(filepath.Join(dir, FileED), func(r record) error {
		date, err := r.date("date")
		if err != nil {
			return err
		}
		d.ED = append(d.ED, EDRecord{
			Date:                 date,
			Hour:                 int(r.num("hour")),
			Site:                 r.str("site"),
			Arrivals:             r.num("arrivals"),
			AdmittedFromED:       r.num("admitted_from_ed"),
			LeftWithoutBeingSeen: r.num("left_without_being_seen"),
			AmbulanceArrivals:    r.num("ambulance_arrivals"),
			SeenWithin4h:         r.num("seen_within_4h"),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, FileAmbulance), func(r record) error {
		date, err := r.date("date")
		if err != nil {
			return err
		}
		d.Ambulance = append(d.Ambulance, AmbulanceRecord{
			Date:            date,
			Slot:            int(r.num("slot")),
			Arrivals:        r.num("arrivals"),
			Queue:           r.num("queue"),
			HandoverOver15m: r.num("handover_over_15m"),
			HandoverOver30m: r.num("handover_over_30m"),
			HandoverOver60m: r.num("handover_over_60m"),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, FileInpatients), func(r record) error {
		date, err := r.date("date")
		if err != nil {
			return err
		}
		d.Inpatients = append(d.Inpatients, InpatientRecord{
			Date:                 date,
			Site:                 r.str("site"),
			Division:             r.str("division"),
			Ward:                 r.str("ward"),
			Beds:                 r.num("beds"),
			Occupied:             r.num("occupied"),
			NCTRMOFD:             r.num("nctr_mofd"),
			Stranded7d:           r.num("stranded_7d"),
			SuperStranded21d:     r.num("super_stranded_21d"),
			Admissions:           r.num("admissions"),
			Discharges:           r.num("discharges"),
			DischargesBeforeNoon: r.num("discharges_before_noon"),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, FileTheatres), func(r record) error {
		date, err := r.date("date")
		if err != nil {
			return err
		}
		d.Theatres = append(d.Theatres, TheatreRecord{
			Date:              date,
			Specialty:         r.str("specialty"),
			Sessions:          r.num("sessions"),
			PlannedCases:      r.num("planned_cases"),
			CompletedCases:    r.num("completed_cases"),
			CancelledOnTheDay: r.num("cancelled_on_the_day"),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readFile(filepath.Join(dir, FileWaitingList), func(r record) error {
		date, err := r.date("date")
		if err != nil {
			return err
		}
		d.WaitingList = append(d.WaitingList, WaitingListRecord{
			Date:         date,
			Specialty:    r.str("specialty"),
			TotalWaiting: r.num("total_waiting"),
			Over52Weeks:  r.num("over_52_weeks"),
			Over65Weeks:  r.num("over_65_weeks"),
			Over78Weeks:  r.num("over_78_weeks"),
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return d, nil
}

// record is a CSV row addressed by lowercase header name. Missing columns
// read as zero values.
type record struct {
	colIdx map[string]int
	fields []string
	line   int
}

func (r record) str(col string) string {
	i, ok := r.colIdx[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) num(col string) float64 {
	v, err := strconv.ParseFloat(r.str(col), 64)
	if err != nil {
		return 0
	}
	return v
}

func (r record) date(col string) (time.Time, error) {
	s := r.str(col)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("line %d: invalid %s %q", r.line, col, s)
}

func readFile(path string, fn func(record) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := readCSV(file, fn); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func readCSV(in io.Reader, fn func(record) error) error {
	reader := csv.NewReader(bufio.NewReader(in))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("missing header row")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	line := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(record{colIdx: colIdx, fields: fields, line: line}); err != nil {
			return err
		}
	}
}
