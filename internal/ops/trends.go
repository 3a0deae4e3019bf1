package ops

import (
	"sort"
	"time"
)

// DailyPoint is one day of ED and bed-state totals.
type DailyPoint struct {
	Date                    time.Time `json:"date"`
	EDArrivals              float64   `json:"edArrivals"`
	AdmittedFromED          float64   `json:"admittedFromEd"`
	LeftWithoutBeingSeen    float64   `json:"leftWithoutBeingSeen"`
	FourHourPct             float64   `json:"fourHourPct"`
	Beds                    float64   `json:"beds"`
	Occupied                float64   `json:"occupied"`
	OccupancyPct            float64   `json:"occupancyPct"`
	Discharges              float64   `json:"discharges"`
	DischargesBeforeNoon    float64   `json:"dischargesBeforeNoon"`
	DischargesBeforeNoonPct *float64  `json:"dischargesBeforeNoonPct"`
	NCTRMOFD                float64   `json:"nctrMofd"`
	Stranded7d              float64   `json:"stranded7d"`
	SuperStranded21d        float64   `json:"superStranded21d"`

	seen float64
}

// DailyTrend totals ED and inpatient rows per day, oldest first. The
// before-noon share is nil on days without discharges.
func DailyTrend(d *Data) []DailyPoint {
	days := make(map[time.Time]*DailyPoint)
	at := func(t time.Time) *DailyPoint {
		day := dayStart(t)
		p, ok := days[day]
		if !ok {
			p = &DailyPoint{Date: day}
			days[day] = p
		}
		return p
	}

	for _, r := range d.ED {
		p := at(r.Date)
		p.EDArrivals += r.Arrivals
		p.AdmittedFromED += r.AdmittedFromED
		p.LeftWithoutBeingSeen += r.LeftWithoutBeingSeen
		p.seen += r.SeenWithin4h
	}
	for _, r := range d.Inpatients {
		p := at(r.Date)
		p.Beds += r.Beds
		p.Occupied += r.Occupied
		p.Discharges += r.Discharges
		p.DischargesBeforeNoon += r.DischargesBeforeNoon
		p.NCTRMOFD += r.NCTRMOFD
		p.Stranded7d += r.Stranded7d
		p.SuperStranded21d += r.SuperStranded21d
	}

	out := make([]DailyPoint, 0, len(days))
	for _, p := range days {
		p.FourHourPct = 100 * SafeDiv(p.seen, p.EDArrivals)
		p.OccupancyPct = 100 * SafeDiv(p.Occupied, p.Beds)
		if p.Discharges > 0 {
			pct := 100 * p.DischargesBeforeNoon / p.Discharges
			p.DischargesBeforeNoonPct = &pct
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// HourlyArrivals is ED activity for one hour of the day across the
// selected dates.
type HourlyArrivals struct {
	Hour              int     `json:"hour"`
	Arrivals          float64 `json:"arrivals"`
	AmbulanceArrivals float64 `json:"ambulanceArrivals"`
	MeanArrivals      float64 `json:"meanArrivals"`
}

// ArrivalsByHour sums ED arrivals per hour of day. MeanArrivals divides by
// the number of distinct days in the ED series.
func ArrivalsByHour(d *Data) []HourlyArrivals {
	hours := make(map[int]*HourlyArrivals)
	days := make(map[time.Time]struct{})
	for _, r := range d.ED {
		days[dayStart(r.Date)] = struct{}{}
		h, ok := hours[r.Hour]
		if !ok {
			h = &HourlyArrivals{Hour: r.Hour}
			hours[r.Hour] = h
		}
		h.Arrivals += r.Arrivals
		h.AmbulanceArrivals += r.AmbulanceArrivals
	}

	out := make([]HourlyArrivals, 0, len(hours))
	for _, h := range hours {
		h.MeanArrivals = SafeDiv(h.Arrivals, float64(len(days)))
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

// AmbulanceProfile is the 15-minute arrivals and queue for one day.
type AmbulanceProfile struct {
	Date      time.Time         `json:"date"`
	Slots     []AmbulanceRecord `json:"slots"`
	PeakQueue float64           `json:"peakQueue"`
}

// LatestAmbulanceDay returns the slots of the last ambulance day in time
// order.
func LatestAmbulanceDay(d *Data) AmbulanceProfile {
	if len(d.Ambulance) == 0 {
		return AmbulanceProfile{}
	}
	day := dayStart(latest(d.Ambulance, func(r AmbulanceRecord) time.Time { return r.Date }))
	p := AmbulanceProfile{Date: day}
	for _, r := range d.Ambulance {
		if !dayStart(r.Date).Equal(day) {
			continue
		}
		p.Slots = append(p.Slots, r)
		if r.Queue > p.PeakQueue {
			p.PeakQueue = r.Queue
		}
	}
	sort.SliceStable(p.Slots, func(i, j int) bool { return p.Slots[i].Date.Before(p.Slots[j].Date) })
	return p
}

// WardStatus is a ward's bed state on the latest inpatient day.
type WardStatus struct {
	InpatientRecord
	OccupancyPct float64 `json:"occupancyPct"`
}

// WardTable returns every ward on the last inpatient day, ordered by site,
// division and ward.
func WardTable(d *Data) []WardStatus {
	if len(d.Inpatients) == 0 {
		return nil
	}
	day := dayStart(latest(d.Inpatients, func(r InpatientRecord) time.Time { return r.Date }))
	var out []WardStatus
	for _, r := range d.Inpatients {
		if dayStart(r.Date).Equal(day) {
			out = append(out, WardStatus{InpatientRecord: r, OccupancyPct: 100 * SafeDiv(r.Occupied, r.Beds)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Site != b.Site {
			return a.Site < b.Site
		}
		if a.Division != b.Division {
			return a.Division < b.Division
		}
		return a.Ward < b.Ward
	})
	return out
}

// TheatreDay is elective activity per day and specialty.
type TheatreDay struct {
	Date              time.Time `json:"date"`
	Specialty         string    `json:"specialty"`
	Sessions          float64   `json:"sessions"`
	PlannedCases      float64   `json:"plannedCases"`
	CompletedCases    float64   `json:"completedCases"`
	CancelledOnTheDay float64   `json:"cancelledOnTheDay"`
	CompletionPct     float64   `json:"completionPct"`
}

// TheatreActivity totals theatre rows per (day, specialty), oldest first
// and by specialty within a day.
func TheatreActivity(d *Data) []TheatreDay {
	type key struct {
		day       time.Time
		specialty string
	}
	groups := make(map[key]*TheatreDay)
	for _, r := range d.Theatres {
		k := key{dayStart(r.Date), r.Specialty}
		g, ok := groups[k]
		if !ok {
			g = &TheatreDay{Date: k.day, Specialty: k.specialty}
			groups[k] = g
		}
		g.Sessions += r.Sessions
		g.PlannedCases += r.PlannedCases
		g.CompletedCases += r.CompletedCases
		g.CancelledOnTheDay += r.CancelledOnTheDay
	}

	out := make([]TheatreDay, 0, len(groups))
	for _, g := range groups {
		g.CompletionPct = 100 * SafeDiv(g.CompletedCases, g.PlannedCases)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Specialty < out[j].Specialty
	})
	return out
}

// Trends bundles the time series behind the operational views.
type Trends struct {
	Daily          []DailyPoint     `json:"daily"`
	ArrivalsByHour []HourlyArrivals `json:"arrivalsByHour"`
	Ambulance      AmbulanceProfile `json:"ambulance"`
	Wards          []WardStatus     `json:"wards"`
	Theatres       []TheatreDay     `json:"theatres"`
}

// BuildTrends computes every series for d.
func BuildTrends(d *Data) Trends {
	return Trends{
		Daily:          DailyTrend(d),
		ArrivalsByHour: ArrivalsByHour(d),
		Ambulance:      LatestAmbulanceDay(d),
		Wards:          WardTable(d),
		Theatres:       TheatreActivity(d),
	}
}
