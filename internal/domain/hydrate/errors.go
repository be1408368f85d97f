package hydrate

import "errors"

var (
	// ErrMissingDeriver is a startup error: a GPT declares a derived metric nothing computes.
	ErrMissingDeriver = errors.New("derived metric has no deriver")
	// ErrMissingMetric is returned when a dry score lacks a mandatory metric.
	ErrMissingMetric = errors.New("mandatory metric missing")
	// ErrUnexpectedMetric is returned when a dry score carries a metric outside the mandatory set.
	ErrUnexpectedMetric = errors.New("unexpected metric")
	// ErrChartData is returned when a deriver needs chart data the chart does not have.
	ErrChartData = errors.New("chart is missing data")
	// ErrMetricOutOfRange is returned when a derived metric falls outside its declared bounds.
	ErrMetricOutOfRange = errors.New("derived metric out of range")
)
