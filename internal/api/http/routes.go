package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/hospital-flow/internal/benchmark"
	"github.com/i474232898/hospital-flow/internal/ops"
	"github.com/i474232898/hospital-flow/internal/store"
)

var validate = validator.New()

// Options carries the defaults handlers fall back to.
type Options struct {
	// DefaultPeers applies when a request has no peers parameter at all.
	DefaultPeers benchmark.PeerSet
	// Ops is the loaded operational data; nil disables the ops endpoints.
	Ops *ops.Data
	// RequestTimeout bounds how long a handler waits on publication
	// downloads. Zero means no deadline.
	RequestTimeout time.Duration
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *benchmark.Service, opts Options) {
	v1 := app.Group("/api/v1", requestContext(opts.RequestTimeout))

	v1.Get("/datasets", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"datasets": service.Catalog()})
	})

	v1.Get("/benchmarks/:dataset", func(c *fiber.Ctx) error {
		var q benchmarkQuery
		if err := q.bind(c, opts.DefaultPeers); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := service.Fetch(c.UserContext(), q.Dataset, q.Period, q.Peers)
		if err != nil {
			return mapError(err)
		}

		body := fiber.Map{
			"dataset":       res.Dataset,
			"periods":       res.Periods,
			"peers":         res.Peers,
			"metricColumns": res.MetricColumns,
			"empty":         res.Empty,
			"records":       res.Records(),
		}
		if res.Empty {
			body["message"] = "no rows matched the requested peers"
		}
		return c.JSON(body)
	})

	v1.Get("/benchmarks/:dataset/compare", func(c *fiber.Ctx) error {
		var q compareQuery
		if err := q.bind(c, opts.DefaultPeers); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		cmp, err := service.Compare(c.UserContext(), benchmark.CompareRequest{
			Dataset: q.Dataset,
			Period:  q.Period,
			Metric:  q.Metric,
			Main:    q.Main,
			Peers:   q.Peers,
		})
		if err != nil {
			return mapError(err)
		}
		return c.JSON(cmp)
	})

	v1.Get("/benchmarks/:dataset/rolling", func(c *fiber.Ctx) error {
		var q benchmarkQuery
		if err := q.bind(c, opts.DefaultPeers); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, metric, err := service.Rolling(c.UserContext(), q.Dataset, c.Query("metric"), q.Peers)
		if err != nil {
			return mapError(err)
		}

		points := make([]rollingPoint, 0, series.Len())
		for i := range series.Rows {
			p := rollingPoint{
				Period:   series.Value(i, benchmark.ColumnPeriod),
				Provider: series.Value(i, benchmark.ColumnProvider),
			}
			if v, ok := benchmark.ParseNumber(series.Value(i, benchmark.ColumnValue)); ok {
				p.Value = &v
			}
			if v, ok := benchmark.ParseNumber(series.Value(i, benchmark.ColumnRollingAverage)); ok {
				p.RollingAverage = &v
			}
			points = append(points, p)
		}
		return c.JSON(fiber.Map{
			"dataset": q.Dataset,
			"metric":  metric,
			"window":  benchmark.RollingWindow,
			"points":  points,
		})
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		var q historyQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		key := benchmark.SeriesKey{Dataset: benchmark.Dataset(q.Dataset), Provider: q.Provider, Metric: q.Metric}
		observations, err := service.History(c.UserContext(), key, q.From, q.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no history for requested series")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch history")
		}
		return c.JSON(fiber.Map{
			"series":       key,
			"observations": observations,
		})
	})

	v1.Get("/ops/overview", func(c *fiber.Ctx) error {
		if opts.Ops == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "operational data not loaded")
		}
		var q overviewQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		filtered := opts.Ops.Apply(ops.Filter{From: q.From, To: q.To, Site: q.Site, Division: q.Division})
		return c.JSON(fiber.Map{
			"filters": fiber.Map{
				"sites":     opts.Ops.Sites(),
				"divisions": opts.Ops.Divisions(),
			},
			"overview": ops.Summarize(filtered, ops.OverviewParams{
				TargetOccupancyPct:     q.TargetOccupancy,
				AdmissionConversionPct: q.AdmissionConversion,
			}),
		})
	})

	v1.Get("/ops/trends", func(c *fiber.Ctx) error {
		if opts.Ops == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "operational data not loaded")
		}
		var q overviewQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		filtered := opts.Ops.Apply(ops.Filter{From: q.From, To: q.To, Site: q.Site, Division: q.Division})
		return c.JSON(ops.BuildTrends(filtered))
	})
}

// requestContext gives each request its own cancellable context, ended
// when the handler returns or timeout elapses.
func requestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(c.UserContext(), timeout)
		} else {
			ctx, cancel = context.WithCancel(c.UserContext())
		}
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// mapError translates service errors into HTTP errors.
func mapError(err error) error {
	var te *benchmark.TransportError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "timed out waiting for publication download")
	case errors.Is(err, benchmark.ErrUnsupportedPeriod), errors.Is(err, benchmark.ErrUnknownDataset):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, benchmark.ErrSchemaMismatch):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &te):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

type rollingPoint struct {
	Period         string   `json:"period"`
	Provider       string   `json:"provider"`
	Value          *float64 `json:"value"`
	RollingAverage *float64 `json:"rollingAverage"`
}

// benchmarkQuery holds the path and query parameters shared by the
// benchmark endpoints.
type benchmarkQuery struct {
	Dataset benchmark.Dataset
	Period  string
	Peers   benchmark.PeerSet
}

func (q *benchmarkQuery) bind(c *fiber.Ctx, defaults benchmark.PeerSet) error {
	q.Dataset = benchmark.Dataset(strings.ToLower(c.Params("dataset")))
	q.Period = c.Query("period")
	q.Peers = defaults
	// An explicit empty peers parameter disables filtering.
	if c.Context().QueryArgs().Has("peers") {
		q.Peers = benchmark.ParsePeers(c.Query("peers"))
	}
	return nil
}

type compareQuery struct {
	benchmarkQuery
	Main   string `validate:"required"`
	Metric string
}

func (q *compareQuery) bind(c *fiber.Ctx, defaults benchmark.PeerSet) error {
	if err := q.benchmarkQuery.bind(c, defaults); err != nil {
		return err
	}
	q.Main = strings.TrimSpace(c.Query("main"))
	q.Metric = c.Query("metric")
	return nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Dataset  string `validate:"required"`
	Provider string `validate:"required"`
	Metric   string `validate:"required"`
	From     time.Time
	To       time.Time `validate:"omitempty,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Dataset = strings.ToLower(c.Query("dataset"))
	h.Provider = c.Query("provider")
	h.Metric = c.Query("metric")

	var err error
	if h.From, err = parseOptionalTime(c.Query("from")); err != nil {
		return err
	}
	if h.To, err = parseOptionalTime(c.Query("to")); err != nil {
		return err
	}
	return nil
}

type overviewQuery struct {
	From                time.Time
	To                  time.Time `validate:"omitempty,gtefield=From"`
	Site                string
	Division            string
	TargetOccupancy     float64 `validate:"gte=50,lte=100"`
	AdmissionConversion float64 `validate:"gte=0,lte=100"`
}

func (q *overviewQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.From, err = parseOptionalTime(c.Query("from")); err != nil {
		return err
	}
	if q.To, err = parseOptionalTime(c.Query("to")); err != nil {
		return err
	}
	q.Site = c.Query("site")
	q.Division = c.Query("division")

	if q.TargetOccupancy, err = parseOptionalFloat(c.Query("target_occupancy"), ops.DefaultTargetOccupancyPct); err != nil {
		return errors.New("target_occupancy must be a number")
	}
	if q.AdmissionConversion, err = parseOptionalFloat(c.Query("admission_conversion"), ops.DefaultAdmissionConversionPct); err != nil {
		return errors.New("admission_conversion must be a number")
	}
	return nil
}

func parseOptionalFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseTime(s)
}

// parseTime tries RFC3339, unix seconds, then period labels such as
// "2025-03" or "2025-03-17".
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	if ts, err := benchmark.ParsePeriod(s); err == nil {
		return ts, nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339, unix seconds or YYYY-MM[-DD]")
}
