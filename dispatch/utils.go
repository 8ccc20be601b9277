package dispatch

import "context"

// Bypass forwards its inputs unchanged as outputs. It is handy for
// assembling several data ids into positional outputs, e.g. collapsing a
// median and a deviation into one tuple-like slot.
func Bypass(_ context.Context, args []any) ([]any, error) {
	return args, nil
}

// Constant returns a callable producing the given fixed values.
func Constant(values ...any) Callable {
	return func(context.Context, []any) ([]any, error) {
		return values, nil
	}
}

// Func1 adapts a single-output function to the Callable interface.
func Func1(fn func(ctx context.Context, args []any) (any, error)) Callable {
	return func(ctx context.Context, args []any) ([]any, error) {
		v, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}
}
