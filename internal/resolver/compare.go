package resolver

// Comparison is the outcome of comparing two optional values.
type Comparison int

const (
	Equal Comparison = iota
	OneMissing
	Conflict
)

func (c Comparison) String() string {
	switch c {
	case Equal:
		return "equal"
	case OneMissing:
		return "one_missing"
	default:
		return "conflict"
	}
}

// Compare treats nil as absent.
func Compare[T comparable](a, b *T) Comparison {
	switch {
	case a == nil || b == nil:
		return OneMissing
	case *a == *b:
		return Equal
	default:
		return Conflict
	}
}

// Compatible reports whether no comparison conflicts.
func Compatible(cs ...Comparison) bool {
	for _, c := range cs {
		if c == Conflict {
			return false
		}
	}
	return true
}

// fill sets dst from src when dst is nil and reports whether it did.
func fill[T any](dst **T, src *T) bool {
	if *dst != nil || src == nil {
		return false
	}
	v := *src
	*dst = &v
	return true
}

// overwrite sets dst from src whenever src is non-nil.
func overwrite[T comparable](dst **T, src *T) bool {
	if src == nil {
		return false
	}
	changed := *dst == nil || **dst != *src
	v := *src
	*dst = &v
	return changed
}
