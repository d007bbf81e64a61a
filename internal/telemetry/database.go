package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	AttrDBOperation  = attribute.Key("app.db.operation")
	AttrCounter      = attribute.Key("app.db.counter")
	AttrRowsAffected = attribute.Key("db.rows_affected")

	maxStatementLen = 500
	spanSetting     = "telemetry:span"
)

type dbOperationKey struct{}

// WithDBOperation names the repository operation ("posts.like",
// "follows.create", "feed.following") that the statements run under ctx
// belong to. Every span the gorm plugin opens for them carries the name.
func WithDBOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, dbOperationKey{}, operation)
}

// DBOperation returns the name set by WithDBOperation, or "".
func DBOperation(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	op, _ := ctx.Value(dbOperationKey{}).(string)
	return op
}

// GORMTracingPlugin returns a gorm plugin that opens one span per statement.
// Spans are named "<VERB> <table>" and tagged with the repository operation
// from the context. Writes always record rows affected; counter updates
// (UpdateColumn with a gorm.Expr) also name the counter column, so a
// like or follow that touched no row is visible in the trace.
func GORMTracingPlugin() gorm.Plugin {
	return &dbTracer{tracer: otel.Tracer("mini-social/gorm")}
}

type dbTracer struct {
	tracer trace.Tracer
}

func (p *dbTracer) Name() string { return "telemetry:gorm" }

func (p *dbTracer) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:create_start", p.start("INSERT")),
		cb.Create().After("gorm:create").Register("telemetry:create_end", p.end("INSERT")),
		cb.Query().Before("gorm:query").Register("telemetry:query_start", p.start("SELECT")),
		cb.Query().After("gorm:query").Register("telemetry:query_end", p.end("SELECT")),
		cb.Update().Before("gorm:update").Register("telemetry:update_start", p.start("UPDATE")),
		cb.Update().After("gorm:update").Register("telemetry:update_end", p.end("UPDATE")),
		cb.Delete().Before("gorm:delete").Register("telemetry:delete_start", p.start("DELETE")),
		cb.Delete().After("gorm:delete").Register("telemetry:delete_end", p.end("DELETE")),
		cb.Raw().Before("gorm:raw").Register("telemetry:raw_start", p.start("EXEC")),
		cb.Raw().After("gorm:raw").Register("telemetry:raw_end", p.end("EXEC")),
	)
}

func (p *dbTracer) start(verb string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		attrs := []attribute.KeyValue{
			attribute.String("db.system", db.Dialector.Name()),
			attribute.String("db.sql.table", table),
			attribute.String("db.operation", verb),
		}
		if op := DBOperation(ctx); op != "" {
			attrs = append(attrs, AttrDBOperation.String(op))
		}
		if col := counterColumn(db.Statement); col != "" {
			attrs = append(attrs, AttrCounter.String(col))
		}

		_, span := p.tracer.Start(ctx, verb+" "+table,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(attrs...),
		)
		db.InstanceSet(spanSetting, span)
	}
}

func (p *dbTracer) end(verb string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(spanSetting)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if sql := db.Statement.SQL.String(); sql != "" {
			if len(sql) > maxStatementLen {
				sql = sql[:maxStatementLen] + "..."
			}
			span.SetAttributes(attribute.String("db.statement", sql))
		}
		if verb != "SELECT" || db.RowsAffected > 0 {
			span.SetAttributes(AttrRowsAffected.Int64(db.RowsAffected))
		}

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
	}
}

// counterColumn reports the column of an UpdateColumn(col, gorm.Expr(...))
// statement.
func counterColumn(stmt *gorm.Statement) string {
	dest, ok := stmt.Dest.(map[string]interface{})
	if !ok || len(dest) != 1 {
		return ""
	}
	for col, v := range dest {
		if _, ok := v.(clause.Expr); ok {
			return col
		}
	}
	return ""
}
