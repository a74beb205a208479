// Package report aggregates form responses into summary and detailed
// reports, delivers them by email and runs the scheduled ones.
package report

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/store"
)

const (
	trailingDays = 30
	topValues    = 10
)

type FormInfo struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type Totals struct {
	Responses      int        `json:"responses"`
	Viewers        int        `json:"viewers"`
	LastResponseAt *time.Time `json:"last_response_at"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FieldStats holds the numeric block, the text block, or both, depending on
// which kind of values were answered.
type FieldStats struct {
	Count     int          `json:"count,omitempty"`
	Min       *float64     `json:"min,omitempty"`
	Max       *float64     `json:"max,omitempty"`
	Mean      *float64     `json:"mean,omitempty"`
	Median    *float64     `json:"median,omitempty"`
	TopValues []ValueCount `json:"top_values,omitempty"`
}

type Summary struct {
	Form            FormInfo              `json:"form"`
	Totals          Totals                `json:"totals"`
	ResponsesPerDay []DayCount            `json:"responses_per_day"`
	Fields          map[string]FieldStats `json:"fields"`
}

type DetailedAnswer struct {
	FieldID    uuid.UUID `json:"field_id"`
	FieldLabel string    `json:"field_label"`
	Value      string    `json:"value"`
}

type DetailedResponse struct {
	ResponseID  uuid.UUID        `json:"response_id"`
	SubmittedAt time.Time        `json:"submitted_at"`
	SubmittedBy *string          `json:"submitted_by"`
	Answers     []DetailedAnswer `json:"answers"`
}

type Detailed struct {
	Form      FormInfo           `json:"form"`
	Responses []DetailedResponse `json:"responses"`
}

// Builder computes reports from the current state of the database. Reports
// are read-only and tolerate concurrent submissions.
type Builder struct {
	db  *sql.DB
	now func() time.Time
}

func NewBuilder(db *sql.DB) *Builder {
	return &Builder{db: db, now: time.Now}
}

// Generate builds the report of the given type, as a Summary or a Detailed.
func (b *Builder) Generate(ctx context.Context, formID uuid.UUID, typ model.ReportType) (any, error) {
	switch typ {
	case model.ReportSummary:
		return b.Summary(ctx, formID)
	case model.ReportDetailed:
		return b.Detailed(ctx, formID)
	}
	return nil, model.Invalid("Unknown report type: %s", typ)
}

func (b *Builder) Summary(ctx context.Context, formID uuid.UUID) (Summary, error) {
	var s Summary
	form, err := store.GetForm(ctx, b.db, formID)
	if err != nil {
		return s, err
	}
	s.Form = FormInfo{ID: form.ID, Title: form.Title}

	if s.Totals.Responses, err = store.CountResponses(ctx, b.db, formID); err != nil {
		return s, err
	}
	if s.Totals.Viewers, err = store.CountFormViews(ctx, b.db, formID); err != nil {
		return s, err
	}
	if s.Totals.LastResponseAt, err = store.LastResponseAt(ctx, b.db, formID); err != nil {
		return s, err
	}

	since := b.now().UTC().AddDate(0, 0, -trailingDays)
	times, err := store.ListSubmissionTimes(ctx, b.db, formID, since)
	if err != nil {
		return s, err
	}
	s.ResponsesPerDay = perDay(times)

	fields, err := store.ListFields(ctx, b.db, formID)
	if err != nil {
		return s, err
	}
	s.Fields = make(map[string]FieldStats, len(fields))
	for _, f := range fields {
		values, err := store.ListFieldValues(ctx, b.db, f.ID)
		if err != nil {
			return s, err
		}
		if len(values) > 0 {
			s.Fields[f.ID.String()] = fieldStats(values)
		}
	}
	return s, nil
}

// perDay groups ascending timestamps by UTC calendar date.
func perDay(times []time.Time) []DayCount {
	days := []DayCount{}
	for _, t := range times {
		d := t.UTC().Format(time.DateOnly)
		if n := len(days); n > 0 && days[n-1].Date == d {
			days[n-1].Count++
			continue
		}
		days = append(days, DayCount{Date: d, Count: 1})
	}
	return days
}

func fieldStats(values []string) FieldStats {
	var (
		numbers []float64
		texts   []string
	)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if x, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(x) && !math.IsInf(x, 0) {
			numbers = append(numbers, x)
		} else {
			texts = append(texts, v)
		}
	}

	var st FieldStats
	if len(numbers) > 0 {
		sorted := append([]float64(nil), numbers...)
		sort.Float64s(sorted)

		sum := 0.0
		for _, x := range numbers {
			sum += x
		}
		mean := sum / float64(len(numbers))

		mid := len(sorted) / 2
		median := sorted[mid]
		if len(sorted)%2 == 0 {
			median = (sorted[mid-1] + sorted[mid]) / 2
		}

		st.Count = len(numbers)
		st.Min = &sorted[0]
		st.Max = &sorted[len(sorted)-1]
		st.Mean = &mean
		st.Median = &median
	}
	if len(texts) > 0 {
		st.TopValues = mostCommon(texts, topValues)
	}
	return st
}

// mostCommon counts values and returns the n most frequent. Ties keep the
// order in which the values first appeared.
func mostCommon(values []string, n int) []ValueCount {
	index := map[string]int{}
	var counts []ValueCount
	for _, v := range values {
		if i, ok := index[v]; ok {
			counts[i].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func (b *Builder) Detailed(ctx context.Context, formID uuid.UUID) (Detailed, error) {
	var d Detailed
	form, err := store.GetForm(ctx, b.db, formID)
	if err != nil {
		return d, err
	}
	d.Form = FormInfo{ID: form.ID, Title: form.Title}

	responses, err := store.ListResponsesWithAnswers(ctx, b.db, formID)
	if err != nil {
		return d, err
	}
	d.Responses = make([]DetailedResponse, 0, len(responses))
	for _, r := range responses {
		dr := DetailedResponse{
			ResponseID:  r.ID,
			SubmittedAt: r.SubmittedAt,
			Answers:     make([]DetailedAnswer, 0, len(r.Answers)),
		}
		if r.Submitter != "" {
			submitter := r.Submitter
			dr.SubmittedBy = &submitter
		}
		for _, a := range r.Answers {
			dr.Answers = append(dr.Answers, DetailedAnswer{FieldID: a.FieldID, FieldLabel: a.FieldLabel, Value: a.Value})
		}
		d.Responses = append(d.Responses, dr)
	}
	return d, nil
}
