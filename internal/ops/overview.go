package ops

import (
	"math"
	"time"
)

// Default capacity-gap parameters.
const (
	DefaultTargetOccupancyPct     = 92
	DefaultAdmissionConversionPct = 25
)

// Filter narrows the operational series. From and To are whole days and
// inclusive; zero values leave that side open. Site applies to ED and
// inpatients, Division to inpatients only. Empty or "All" means no filter.
type Filter struct {
	From     time.Time
	To       time.Time
	Site     string
	Division string
}

func (f Filter) inDateRange(t time.Time) bool {
	if !f.From.IsZero() && t.Before(dayStart(f.From)) {
		return false
	}
	if !f.To.IsZero() && !t.Before(dayStart(f.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

func matches(want, got string) bool {
	return want == "" || want == "All" || want == got
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Apply returns the subset of d selected by f.
func (d *Data) Apply(f Filter) *Data {
	out := &Data{}
	for _, r := range d.ED {
		if f.inDateRange(r.Date) && (r.Site == "" || matches(f.Site, r.Site)) {
			out.ED = append(out.ED, r)
		}
	}
	for _, r := range d.Ambulance {
		if f.inDateRange(r.Date) {
			out.Ambulance = append(out.Ambulance, r)
		}
	}
	for _, r := range d.Inpatients {
		if f.inDateRange(r.Date) && matches(f.Site, r.Site) && matches(f.Division, r.Division) {
			out.Inpatients = append(out.Inpatients, r)
		}
	}
	for _, r := range d.Theatres {
		if f.inDateRange(r.Date) {
			out.Theatres = append(out.Theatres, r)
		}
	}
	for _, r := range d.WaitingList {
		if f.inDateRange(r.Date) {
			out.WaitingList = append(out.WaitingList, r)
		}
	}
	return out
}

// Sites returns the distinct inpatient sites in first-seen order.
func (d *Data) Sites() []string {
	return distinct(d.Inpatients, func(r InpatientRecord) string { return r.Site })
}

// Divisions returns the distinct inpatient divisions in first-seen order.
func (d *Data) Divisions() []string {
	return distinct(d.Inpatients, func(r InpatientRecord) string { return r.Division })
}

func distinct[T any](rows []T, key func(T) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		k := key(r)
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// OverviewParams configures the capacity gap calculation.
type OverviewParams struct {
	TargetOccupancyPct     float64
	AdmissionConversionPct float64
}

// Overview is the at-a-glance summary for the most recent inpatient day.
type Overview struct {
	Date                    time.Time `json:"date"`
	EDArrivals              float64   `json:"edArrivals"`
	AmbulanceArrivals       float64   `json:"ambulanceArrivals"`
	FourHourPct             float64   `json:"fourHourPct"`
	Beds                    float64   `json:"beds"`
	Occupied                float64   `json:"occupied"`
	BedOccupancyPct         float64   `json:"bedOccupancyPct"`
	Discharges              float64   `json:"discharges"`
	DischargesBeforeNoonPct float64   `json:"dischargesBeforeNoonPct"`
	ExpectedAdmissions      float64   `json:"expectedAdmissions"`
	TargetOccupied          float64   `json:"targetOccupied"`
	CapacityGapBeds         float64   `json:"capacityGapBeds"`
	NCTRMOFD                float64   `json:"nctrMofd"`
	HandoverDate            time.Time `json:"handoverDate"` // last ambulance day; handover counts cover it
	HandoverOver15m         float64   `json:"handoverOver15m"`
	HandoverOver30m         float64   `json:"handoverOver30m"`
	HandoverOver60m         float64   `json:"handoverOver60m"`
	WaitingTotal            float64   `json:"waitingTotal"`
	WaitingOver52Weeks      float64   `json:"waitingOver52Weeks"`
	WaitingOver65Weeks      float64   `json:"waitingOver65Weeks"`
	WaitingOver78Weeks      float64   `json:"waitingOver78Weeks"`
	Empty                   bool      `json:"empty"`
}

// CapacityGap returns how many beds short of the target occupancy the site
// will be after expected admissions and planned discharges. Never negative.
func CapacityGap(beds, occupied, targetOccPct, expectedAdmits, plannedDischarges float64) (gap, targetOccupied float64) {
	targetOccupied = beds * targetOccPct / 100
	gap = math.Max(0, (occupied+expectedAdmits-plannedDischarges)-targetOccupied)
	return gap, targetOccupied
}

// SafeDiv returns a/b, or 0 when b is zero.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// latest returns the most recent date in rows, zero when rows is empty.
func latest[T any](rows []T, date func(T) time.Time) time.Time {
	var last time.Time
	for _, r := range rows {
		if t := date(r); t.After(last) {
			last = t
		}
	}
	return last
}

// Summarize computes the overview for the last inpatient day in d. Handover
// counts use the last ambulance day and the waiting list its last snapshot.
// An input with no inpatient rows yields Empty.
func Summarize(d *Data, p OverviewParams) Overview {
	if len(d.Inpatients) == 0 {
		return Overview{Empty: true}
	}

	day := dayStart(latest(d.Inpatients, func(r InpatientRecord) time.Time { return r.Date }))
	sameDay := func(t time.Time) bool { return dayStart(t).Equal(day) }

	ov := Overview{Date: day}
	var beforeNoon, seen float64
	for _, r := range d.Inpatients {
		if !sameDay(r.Date) {
			continue
		}
		ov.Beds += r.Beds
		ov.Occupied += r.Occupied
		ov.Discharges += r.Discharges
		ov.NCTRMOFD += r.NCTRMOFD
		beforeNoon += r.DischargesBeforeNoon
	}
	for _, r := range d.ED {
		if !sameDay(r.Date) {
			continue
		}
		ov.EDArrivals += r.Arrivals
		ov.AmbulanceArrivals += r.AmbulanceArrivals
		seen += r.SeenWithin4h
	}
	if len(d.Ambulance) > 0 {
		ov.HandoverDate = dayStart(latest(d.Ambulance, func(r AmbulanceRecord) time.Time { return r.Date }))
	}
	for _, r := range d.Ambulance {
		if !dayStart(r.Date).Equal(ov.HandoverDate) {
			continue
		}
		ov.HandoverOver15m += r.HandoverOver15m
		ov.HandoverOver30m += r.HandoverOver30m
		ov.HandoverOver60m += r.HandoverOver60m
	}

	wlLast := latest(d.WaitingList, func(r WaitingListRecord) time.Time { return r.Date })
	for _, r := range d.WaitingList {
		if r.Date.Equal(wlLast) {
			ov.WaitingTotal += r.TotalWaiting
			ov.WaitingOver52Weeks += r.Over52Weeks
			ov.WaitingOver65Weeks += r.Over65Weeks
			ov.WaitingOver78Weeks += r.Over78Weeks
		}
	}

	ov.FourHourPct = 100 * SafeDiv(seen, math.Max(ov.EDArrivals, 1))
	ov.BedOccupancyPct = 100 * SafeDiv(ov.Occupied, ov.Beds)
	ov.DischargesBeforeNoonPct = 100 * SafeDiv(beforeNoon, math.Max(ov.Discharges, 1))
	ov.ExpectedAdmissions = ov.EDArrivals * p.AdmissionConversionPct / 100
	ov.CapacityGapBeds, ov.TargetOccupied = CapacityGap(ov.Beds, ov.Occupied, p.TargetOccupancyPct, ov.ExpectedAdmissions, ov.Discharges)
	return ov
}
