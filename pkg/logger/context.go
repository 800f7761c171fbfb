package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type fieldsKey struct{}

// ContextWithFields returns a copy of ctx carrying fields merged over any already present.
func ContextWithFields(ctx context.Context, fields logrus.Fields) context.Context {
	merged := logrus.Fields{}
	if prev, ok := ctx.Value(fieldsKey{}).(logrus.Fields); ok {
		for k, v := range prev {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// WithContext returns an entry carrying the fields stored in ctx (request_id, user, ...).
func WithContext(ctx context.Context) *logrus.Entry {
	entry := L().WithContext(ctx)
	if fields, ok := ctx.Value(fieldsKey{}).(logrus.Fields); ok {
		entry = entry.WithFields(fields)
	}
	return entry
}
