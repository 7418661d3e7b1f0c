package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// ObjectType records the owning object type under the key "object_type".
func ObjectType(t string) slog.Attr {
	return slog.String("object_type", t)
}

// ObjectID records the owning object identifier under the key "object_id".
func ObjectID(id string) slog.Attr {
	return slog.String("object_id", id)
}

// Field records the state field name under the key "field".
func Field(name string) slog.Attr {
	return slog.String("field", name)
}

// Column records a storage column name under the key "column".
func Column(name string) slog.Attr {
	return slog.String("column", name)
}

// FromState records the source state under the key "from".
// The absence of a prior state is logged as "none".
func FromState(token string) slog.Attr {
	if token == "" {
		return slog.String("from", "none")
	}
	return slog.String("from", token)
}

// ToState records the target state under the key "to".
func ToState(token string) slog.Attr {
	return slog.String("to", token)
}

// Transition groups the attributes describing one transition under the key "transition".
func Transition(objectType, objectID, field, from, to string) slog.Attr {
	return Group("transition",
		ObjectType(objectType),
		ObjectID(objectID),
		Field(field),
		FromState(from),
		ToState(to),
	)
}
