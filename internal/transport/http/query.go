package http

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apierrors "cotcli/internal/errors"
	"cotcli/internal/frame"
	"cotcli/internal/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report query parameter names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("query")
	})
	return v
}

type radarParams struct {
	HotOnly  bool   `query:"hot_only"`
	Category string `query:"category" validate:"max=64"`
	Limit    int    `query:"limit" validate:"gte=0,lte=500"`
}

type positioningParams struct {
	Category string `query:"category" validate:"max=64"`
}

type metricsParams struct {
	MarketKey string   `query:"market_key" validate:"required,max=64"`
	From      string   `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To        string   `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Columns   []string `query:"columns" validate:"max=256,dive,required,max=128"`
}

func parseRadarQuery(values url.Values) (services.RadarQuery, error) {
	p := radarParams{Category: strings.TrimSpace(values.Get("category"))}
	if s := values.Get("hot_only"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return services.RadarQuery{}, apierrors.ErrValidation("hot_only", "must be true or false")
		}
		p.HotOnly = b
	}
	if s := values.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return services.RadarQuery{}, apierrors.ErrValidation("limit", "must be an integer")
		}
		p.Limit = n
	}
	if err := validateParams(p); err != nil {
		return services.RadarQuery{}, err
	}
	return services.RadarQuery{HotOnly: p.HotOnly, Category: p.Category, Limit: p.Limit}, nil
}

func parsePositioningQuery(values url.Values) (string, error) {
	p := positioningParams{Category: strings.TrimSpace(values.Get("category"))}
	if err := validateParams(p); err != nil {
		return "", err
	}
	return p.Category, nil
}

// parseMetricsQuery accepts columns as a comma separated list, a repeated
// parameter, or both.
func parseMetricsQuery(marketKey string, values url.Values) (services.MetricsQuery, error) {
	p := metricsParams{
		MarketKey: marketKey,
		From:      strings.TrimSpace(values.Get("from")),
		To:        strings.TrimSpace(values.Get("to")),
	}
	for _, v := range values["columns"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				p.Columns = append(p.Columns, c)
			}
		}
	}
	if err := validateParams(p); err != nil {
		return services.MetricsQuery{}, err
	}

	q := services.MetricsQuery{Columns: p.Columns}
	var err error
	if p.From != "" {
		if q.From, err = time.Parse(frame.DateLayout, p.From); err != nil {
			return q, apierrors.ErrValidation("from", "must be a YYYY-MM-DD date")
		}
	}
	if p.To != "" {
		if q.To, err = time.Parse(frame.DateLayout, p.To); err != nil {
			return q, apierrors.ErrValidation("to", "must be a YYYY-MM-DD date")
		}
	}
	return q, nil
}

// validateParams runs struct validation and converts failures to a 400
// problem listing each offending parameter.
func validateParams(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.ErrInvalidParameter
	}
	out := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: describe(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "datetime":
		return "must be a YYYY-MM-DD date"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
