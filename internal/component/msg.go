package component

// Msg is a tagged message. The tag alone decides how the runtime routes it.
type Msg interface {
	Tag() string
}

// Tagged is a message that carries a payload under a tag. Parents use it to
// wrap child messages without declaring a type per child.
type Tagged[T any] struct {
	Name  string
	Value T
}

func (t Tagged[T]) Tag() string { return t.Name }

// Wrap tags a value.
func Wrap[T any](name string, value T) Tagged[T] {
	return Tagged[T]{Name: name, Value: value}
}

// Global message tags.
const (
	TagNewURL        = "@newUrl"
	TagReplaceURL    = "@replaceUrl"
	TagNewRoute      = "@newRoute"
	TagReplaceRoute  = "@replaceRoute"
	TagToast         = "@toast"
	TagReload        = "@reload"
	TagIncomingRoute = "@incomingRoute"
)

// Class partitions messages by who handles them.
type Class int

const (
	ClassLocal Class = iota
	ClassNavigation
	ClassToast
	ClassReload
	ClassIncomingRoute
)

func (c Class) String() string {
	switch c {
	case ClassNavigation:
		return "navigation"
	case ClassToast:
		return "toast"
	case ClassReload:
		return "reload"
	case ClassIncomingRoute:
		return "incoming-route"
	default:
		return "local"
	}
}

// Classify sorts a message by tag. It never inspects the concrete type, so
// wrapped or generic messages classify the same way as their tag says.
func Classify(msg Msg) Class {
	if msg == nil {
		return ClassLocal
	}
	switch msg.Tag() {
	case TagNewURL, TagReplaceURL, TagNewRoute, TagReplaceRoute:
		return ClassNavigation
	case TagToast:
		return ClassToast
	case TagReload:
		return ClassReload
	case TagIncomingRoute:
		return ClassIncomingRoute
	default:
		return ClassLocal
	}
}

// IsGlobal reports whether msg belongs to the global set handled by the
// runtime: navigation, toast and reload.
func IsGlobal(msg Msg) bool {
	switch Classify(msg) {
	case ClassNavigation, ClassToast, ClassReload:
		return true
	default:
		return false
	}
}

// NewURL pushes a URL onto the history.
type NewURL struct{ URL string }

func (NewURL) Tag() string { return TagNewURL }

// ReplaceURL replaces the current history entry.
type ReplaceURL struct{ URL string }

func (ReplaceURL) Tag() string { return TagReplaceURL }

// NewRoute pushes a typed route, translated to a URL by the router.
type NewRoute[R any] struct{ Route R }

func (NewRoute[R]) Tag() string { return TagNewRoute }

// ReplaceRoute replaces the current history entry with a typed route.
type ReplaceRoute[R any] struct{ Route R }

func (ReplaceRoute[R]) Tag() string { return TagReplaceRoute }

// ToastKind selects how a toast is styled.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
)

// Toast enqueues a transient notification.
type Toast struct {
	Kind  ToastKind
	Title string
	Body  string
}

func (Toast) Tag() string { return TagToast }

// Reload re-enters the current route.
type Reload struct{}

func (Reload) Tag() string { return TagReload }

// IncomingRoute is sent by the router once per matched navigation.
type IncomingRoute[R any] struct{ Route R }

func (IncomingRoute[R]) Tag() string { return TagIncomingRoute }
