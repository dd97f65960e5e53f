package vm

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"gml-vm/internal/value"
)

type mathFn func(float64) float64

// stdlib holds the state behind the random functions.
type stdlib struct {
	seed int64
	rng  *rand.Rand
}

// RegisterStdlib defines the pure natives: math, random, type and string
// functions.
func RegisterStdlib(t *NativeTable, seed int64) {
	s := &stdlib{seed: seed, rng: rand.New(rand.NewSource(seed))}

	unary := map[string]mathFn{
		"abs":      math.Abs,
		"floor":    math.Floor,
		"ceil":     math.Ceil,
		"round":    math.RoundToEven,
		"exp":      math.Exp,
		"sin":      math.Sin,
		"cos":      math.Cos,
		"tan":      math.Tan,
		"arctan":   math.Atan,
		"degtorad": func(x float64) float64 { return x * math.Pi / 180 },
		"radtodeg": func(x float64) float64 { return x * 180 / math.Pi },
		"sqr":      func(x float64) float64 { return x * x },
		"frac":     func(x float64) float64 { return x - math.Trunc(x) },
		"sign":     sign,
	}
	for name, fn := range unary {
		t.Define(name, 1, realFn(name, fn))
	}

	t.Define("sqrt", 1, domainFn("sqrt", math.Sqrt, func(x float64) bool { return x >= 0 }))
	t.Define("ln", 1, domainFn("ln", math.Log, positive))
	t.Define("log2", 1, domainFn("log2", math.Log2, positive))
	t.Define("log10", 1, domainFn("log10", math.Log10, positive))
	t.Define("arcsin", 1, domainFn("arcsin", math.Asin, unit))
	t.Define("arccos", 1, domainFn("arccos", math.Acos, unit))

	t.Define("power", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		x, y, err := twoReals("power", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(math.Pow(x, y)), nil
	})
	t.Define("arctan2", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		y, x, err := twoReals("arctan2", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(math.Atan2(y, x)), nil
	})

	t.Define("min", -1, reduceFn("min", func(xs []float64) float64 {
		sort.Float64s(xs)
		return xs[0]
	}))
	t.Define("max", -1, reduceFn("max", func(xs []float64) float64 {
		sort.Float64s(xs)
		return xs[len(xs)-1]
	}))
	t.Define("mean", -1, reduceFn("mean", func(xs []float64) float64 {
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		return sum / float64(len(xs))
	}))
	t.Define("median", -1, reduceFn("median", func(xs []float64) float64 {
		sort.Float64s(xs)
		return xs[len(xs)/2]
	}))

	t.Define("point_distance", 4, func(ctx *Context, args []value.Value) (value.Value, error) {
		xs, err := reals("point_distance", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(math.Hypot(xs[2]-xs[0], xs[3]-xs[1])), nil
	})
	t.Define("point_direction", 4, func(ctx *Context, args []value.Value) (value.Value, error) {
		xs, err := reals("point_direction", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(PointDirection(xs[0], xs[1], xs[2], xs[3])), nil
	})
	t.Define("lengthdir_x", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		l, dir, err := twoReals("lengthdir_x", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(l * math.Cos(dir*math.Pi/180)), nil
	})
	t.Define("lengthdir_y", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		l, dir, err := twoReals("lengthdir_y", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(-l * math.Sin(dir*math.Pi/180)), nil
	})

	s.registerRandom(t)
	registerTypes(t)
	registerStrings(t)
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func positive(x float64) bool { return x > 0 }
func unit(x float64) bool     { return x >= -1 && x <= 1 }

// PointDirection is the angle in degrees from (x1, y1) to (x2, y2), with y
// growing downwards, in [0, 360).
func PointDirection(x1, y1, x2, y2 float64) float64 {
	d := math.Atan2(-(y2 - y1), x2-x1) * 180 / math.Pi
	if d < 0 {
		d += 360
	}
	return d
}

func realFn(name string, fn mathFn) NativeFn {
	return func(ctx *Context, args []value.Value) (value.Value, error) {
		x, err := Real(name, args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(fn(x)), nil
	}
}

func domainFn(name string, fn mathFn, valid func(float64) bool) NativeFn {
	return func(ctx *Context, args []value.Value) (value.Value, error) {
		x, err := Real(name, args, 0)
		if err != nil {
			return value.Undefined, err
		}
		if !valid(x) {
			return value.Undefined, Errorf(Other, "%s: argument %s is outside the domain", name, value.FormatReal(x))
		}
		return value.NewReal(fn(x)), nil
	}
}

func twoReals(name string, args []value.Value) (float64, float64, error) {
	x, err := Real(name, args, 0)
	if err != nil {
		return 0, 0, err
	}
	y, err := Real(name, args, 1)
	return x, y, err
}

func reals(name string, args []value.Value) ([]float64, error) {
	xs := make([]float64, len(args))
	for i := range args {
		x, err := Real(name, args, i)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	return xs, nil
}

func reduceFn(name string, fn func([]float64) float64) NativeFn {
	return func(ctx *Context, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Undefined, Errorf(Arity, "%s needs at least one argument", name)
		}
		xs, err := reals(name, args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(fn(xs)), nil
	}
}

func (s *stdlib) registerRandom(t *NativeTable) {
	t.Define("random", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		n, err := Real("random", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(s.rng.Float64() * n), nil
	})
	t.Define("random_range", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		lo, hi, err := twoReals("random_range", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewReal(lo + s.rng.Float64()*(hi-lo)), nil
	})
	t.Define("irandom", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		n, err := Int("irandom", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewInt(s.intn(n)), nil
	})
	t.Define("irandom_range", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		lo, err := Int("irandom_range", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		hi, err := Int("irandom_range", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		return value.NewInt(lo + s.intn(hi-lo)), nil
	})
	t.Define("choose", -1, func(ctx *Context, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Undefined, Errorf(Arity, "choose needs at least one argument")
		}
		return args[s.rng.Intn(len(args))], nil
	})
	t.Define("random_set_seed", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		seed, err := Int("random_set_seed", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		s.seed = int64(seed)
		s.rng.Seed(s.seed)
		return value.NewReal(0), nil
	})
	t.Define("random_get_seed", 0, func(ctx *Context, args []value.Value) (value.Value, error) {
		return value.NewReal(float64(s.seed)), nil
	})
}

// intn draws from [0, n] inclusive.
func (s *stdlib) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n + 1)
}

func registerTypes(t *NativeTable) {
	t.Define("is_real", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		return value.NewBool(args[0].IsReal()), nil
	})
	t.Define("is_string", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		return value.NewBool(args[0].IsString()), nil
	})
	t.Define("string", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		return value.NewString(args[0].String()), nil
	})
	t.Define("real", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		if f, ok := args[0].Number(); ok {
			return value.NewReal(f), nil
		}
		if !args[0].IsString() {
			return value.NewReal(0), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(args[0].AsString), 64)
		if err != nil {
			return value.NewReal(0), nil
		}
		return value.NewReal(f), nil
	})
}

// String positions are 1-based and count bytes.
func registerStrings(t *NativeTable) {
	t.Define("string_length", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String("string_length", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewInt(len(s)), nil
	})
	t.Define("string_upper", 1, stringFn("string_upper", strings.ToUpper))
	t.Define("string_lower", 1, stringFn("string_lower", strings.ToLower))

	t.Define("string_copy", 3, func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String("string_copy", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		index, count, err := twoInts("string_copy", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		from, to := span(len(s), index, count)
		return value.NewString(s[from:to]), nil
	})
	t.Define("string_char_at", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String("string_char_at", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		index, err := Int("string_char_at", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		if index < 1 || index > len(s) {
			return value.NewString(""), nil
		}
		return value.NewString(s[index-1 : index]), nil
	})
	t.Define("string_pos", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		sub, s, err := twoStrings("string_pos", args)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewInt(strings.Index(s, sub) + 1), nil
	})
	t.Define("string_count", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		sub, s, err := twoStrings("string_count", args)
		if err != nil {
			return value.Undefined, err
		}
		if sub == "" {
			return value.NewReal(0), nil
		}
		return value.NewInt(strings.Count(s, sub)), nil
	})
	t.Define("string_repeat", 2, func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String("string_repeat", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		n, err := Int("string_repeat", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		repeated, rerr := repeat(s, n)
		if rerr != nil {
			return value.Undefined, rerr
		}
		return value.NewString(repeated), nil
	})
	t.Define("string_replace", 3, replaceFn("string_replace", 1))
	t.Define("string_replace_all", 3, replaceFn("string_replace_all", -1))
	t.Define("string_delete", 3, func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String("string_delete", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		index, count, err := twoInts("string_delete", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		from, to := span(len(s), index, count)
		return value.NewString(s[:from] + s[to:]), nil
	})
	t.Define("string_insert", 3, func(ctx *Context, args []value.Value) (value.Value, error) {
		sub, s, err := twoStrings("string_insert", args)
		if err != nil {
			return value.Undefined, err
		}
		index, err := Int("string_insert", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		at := clamp(index-1, 0, len(s))
		return value.NewString(s[:at] + sub + s[at:]), nil
	})
	t.Define("chr", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		n, err := Int("chr", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewString(string([]byte{byte(n)})), nil
	})
	t.Define("ord", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String("ord", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		if s == "" {
			return value.NewReal(0), nil
		}
		return value.NewInt(int(s[0])), nil
	})
}

func stringFn(name string, fn func(string) string) NativeFn {
	return func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String(name, args, 0)
		if err != nil {
			return value.Undefined, err
		}
		return value.NewString(fn(s)), nil
	}
}

func replaceFn(name string, n int) NativeFn {
	return func(ctx *Context, args []value.Value) (value.Value, error) {
		s, err := String(name, args, 0)
		if err != nil {
			return value.Undefined, err
		}
		old, err := String(name, args, 1)
		if err != nil {
			return value.Undefined, err
		}
		repl, err := String(name, args, 2)
		if err != nil {
			return value.Undefined, err
		}
		if old == "" {
			return value.NewString(s), nil
		}
		return value.NewString(strings.Replace(s, old, repl, n)), nil
	}
}

func twoStrings(name string, args []value.Value) (string, string, error) {
	a, err := String(name, args, 0)
	if err != nil {
		return "", "", err
	}
	b, err := String(name, args, 1)
	return a, b, err
}

func twoInts(name string, args []value.Value, first int) (int, int, error) {
	a, err := Int(name, args, first)
	if err != nil {
		return 0, 0, err
	}
	b, err := Int(name, args, first+1)
	return a, b, err
}

// span converts a 1-based index and a count into byte bounds within a string
// of length n.
func span(n, index, count int) (int, int) {
	from := clamp(index-1, 0, n)
	if count < 0 {
		count = 0
	}
	return from, clamp(from+count, from, n)
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
