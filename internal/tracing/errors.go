package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordError 在span上记录错误并置为错误状态
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordErrorWithAttrs 记录错误并附带额外属性
func RecordErrorWithAttrs(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.SetAttributes(attrs...)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// MarkSuccess 将span标记为成功
func MarkSuccess(span trace.Span) {
	if span == nil || !span.IsRecording() {
		return
	}
	span.SetStatus(codes.Ok, "")
}
