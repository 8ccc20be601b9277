package model

import "fmt"

// Callables receive untyped args; these helpers convert with a useful
// error instead of a panic so failed runs stay inspectable in the trace.

func f64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	}
	return 0, fmt.Errorf("want a number, got %T", v)
}

func f64s(v any) ([]float64, error) {
	x, ok := v.([]float64)
	if !ok {
		return nil, fmt.Errorf("want []float64, got %T", v)
	}
	return x, nil
}

func str(v any) (string, error) {
	x, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("want string, got %T", v)
	}
	return x, nil
}
