package telemetry

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	dbSpanKey       = "plaza:db_span"
	maxStatementLen = 500
)

type dbSpan struct {
	span  trace.Span
	start time.Time
}

// GORMTracingPlugin returns a gorm plugin that wraps each select, insert,
// update and delete in a "db.<op>" span. system labels db.system.
func GORMTracingPlugin(system string) gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm"), system: system}
}

type tracingPlugin struct {
	tracer trace.Tracer
	system string
}

func (p *tracingPlugin) Name() string { return "plaza:tracing" }

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Query().Before("gorm:query").Register("plaza:trace_select", p.open("select")),
		cb.Query().After("gorm:query").Register("plaza:trace_select_end", p.close),
		cb.Create().Before("gorm:create").Register("plaza:trace_insert", p.open("insert")),
		cb.Create().After("gorm:create").Register("plaza:trace_insert_end", p.close),
		cb.Update().Before("gorm:update").Register("plaza:trace_update", p.open("update")),
		cb.Update().After("gorm:update").Register("plaza:trace_update_end", p.close),
		cb.Delete().Before("gorm:delete").Register("plaza:trace_delete", p.open("delete")),
		cb.Delete().After("gorm:delete").Register("plaza:trace_delete_end", p.close),
	)
}

func (p *tracingPlugin) open(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		_, span := p.tracer.Start(ctx, "db."+op, trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", p.system),
				attribute.String("db.operation", op),
				attribute.String("db.table", db.Statement.Table),
			))
		db.InstanceSet(dbSpanKey, dbSpan{span: span, start: time.Now()})
	}
}

func (p *tracingPlugin) close(db *gorm.DB) {
	v, ok := db.InstanceGet(dbSpanKey)
	if !ok {
		return
	}
	s := v.(dbSpan)
	defer s.span.End()

	s.span.SetAttributes(
		attribute.String("db.statement", truncateStatement(db.Statement.SQL.String())),
		attribute.Int64("db.rows_affected", db.RowsAffected),
		attribute.Int64("db.duration_ms", time.Since(s.start).Milliseconds()),
	)
	// a missing row is an answer, not a failure
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(s.span, db.Error)
	}
}

func truncateStatement(sql string) string {
	if len(sql) <= maxStatementLen {
		return sql
	}
	return sql[:maxStatementLen] + "... (truncated)"
}
