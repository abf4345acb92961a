package cdc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arcflow/pgql/catalog"
	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"
	"go.uber.org/zap"
)

// StreamConfig names the logical-replication slot and publication the
// Consumer reads from, per spec.md §4.8's "consumes a logical-replication
// stream."
type StreamConfig struct {
	ConnString  string
	SlotName    string
	Publication string

	// StandbyTimeout bounds how long the consumer waits between mandatory
	// standby status updates; zero uses DefaultStandbyTimeout.
	StandbyTimeout time.Duration

	// ReconnectDelay is how long Run waits before retrying after the
	// replication connection drops; zero uses DefaultReconnectDelay.
	ReconnectDelay time.Duration
}

const (
	DefaultStandbyTimeout = 10 * time.Second
	DefaultReconnectDelay = 5 * time.Second
)

// Consumer reads the pgoutput logical-replication stream and publishes
// translated Events into a Registry. Grounded on the same permanent
// reconnect-loop shape a raw replication reader needs: one connection at a
// time, standby keepalives, and a translation step before fan-out.
type Consumer struct {
	cfg       StreamConfig
	registry  *Registry
	reflector *catalog.Reflector
	schema    string
	logger    *zap.Logger

	relations map[uint32]*pglogrepl.RelationMessage
}

// NewConsumer builds a Consumer publishing into registry, using reflector's
// current snapshot of schema to resolve positional column labels.
func NewConsumer(cfg StreamConfig, registry *Registry, reflector *catalog.Reflector, schema string, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StandbyTimeout <= 0 {
		cfg.StandbyTimeout = DefaultStandbyTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Consumer{
		cfg:       cfg,
		registry:  registry,
		reflector: reflector,
		schema:    schema,
		logger:    logger,
		relations: make(map[uint32]*pglogrepl.RelationMessage),
	}
}

// Run is the permanent background loop: it reconnects and resumes streaming
// until ctx is cancelled. Every unexpected disconnect terminates the
// registry's buffers (spec.md §4.8 Active -> Terminated) before retrying;
// the next successful Publish recreates them.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := c.connectAndStream(ctx)
		c.registry.TerminateAll()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("cdc: replication connection lost, reconnecting",
			zap.Error(err), zap.Duration("delay", c.cfg.ReconnectDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Consumer) connectAndStream(ctx context.Context) error {
	conn, err := pgconn.Connect(ctx, c.cfg.ConnString)
	if err != nil {
		return fmt.Errorf("cdc: connect: %w", err)
	}
	defer conn.Close(ctx)

	sys, err := pglogrepl.IdentifySystem(ctx, conn)
	if err != nil {
		return fmt.Errorf("cdc: identify system: %w", err)
	}
	c.logger.Info("cdc: replication stream starting",
		zap.String("systemID", sys.SystemID), zap.String("slot", c.cfg.SlotName))

	pluginArgs := []string{
		"proto_version '1'",
		fmt.Sprintf("publication_names '%s'", c.cfg.Publication),
	}
	if err := pglogrepl.StartReplication(ctx, conn, c.cfg.SlotName, sys.XLogPos,
		pglogrepl.StartReplicationOptions{PluginArgs: pluginArgs}); err != nil {
		return fmt.Errorf("cdc: start replication: %w", err)
	}

	var lastLSN pglogrepl.LSN
	deadline := time.Now().Add(c.cfg.StandbyTimeout)

	for {
		if time.Now().After(deadline) {
			if lastLSN != 0 {
				if err := pglogrepl.SendStandbyStatusUpdate(ctx, conn,
					pglogrepl.StandbyStatusUpdate{WALWritePosition: lastLSN}); err != nil {
					return fmt.Errorf("cdc: standby status update: %w", err)
				}
			}
			deadline = time.Now().Add(c.cfg.StandbyTimeout)
		}

		recvCtx, cancel := context.WithDeadline(ctx, deadline)
		raw, err := conn.ReceiveMessage(recvCtx)
		cancel()
		if err != nil {
			if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return fmt.Errorf("cdc: receive: %w", err)
		}

		if errMsg, ok := raw.(*pgproto3.ErrorResponse); ok {
			return fmt.Errorf("cdc: wal error: %s", errMsg.Message)
		}
		copyData, ok := raw.(*pgproto3.CopyData)
		if !ok {
			continue
		}

		switch copyData.Data[0] {
		case pglogrepl.PrimaryKeepaliveMessageByteID:
			pkm, err := pglogrepl.ParsePrimaryKeepaliveMessage(copyData.Data[1:])
			if err != nil {
				continue
			}
			if pkm.ReplyRequested {
				deadline = time.Time{}
			}
			if pkm.ServerWALEnd > lastLSN {
				lastLSN = pkm.ServerWALEnd
			}

		case pglogrepl.XLogDataByteID:
			xld, err := pglogrepl.ParseXLogData(copyData.Data[1:])
			if err != nil {
				c.logger.Warn("cdc: malformed XLogData", zap.Error(err))
				continue
			}
			if xld.WALStart > lastLSN {
				lastLSN = xld.WALStart
			}
			c.handleMessage(ctx, xld.WALStart, xld.WALData)
		}
	}
}

// handleMessage decodes one pgoutput message and, if it translates to an
// Event, publishes it. Decode failures emit a KindError event rather than
// aborting the stream, per spec.md §4.8's "malformed event payloads emit an
// event with an error marker rather than crashing the stream."
func (c *Consumer) handleMessage(ctx context.Context, lsn pglogrepl.LSN, data []byte) {
	msg, err := pglogrepl.Parse(data)
	if err != nil {
		c.registry.Publish(ctx, errorEvent(c.schema, "", fmt.Errorf("cdc: decode pgoutput message: %w", err)))
		return
	}

	switch m := msg.(type) {
	case *pglogrepl.RelationMessage:
		c.relations[m.RelationID] = m

	case *pglogrepl.BeginMessage:
		c.registry.Publish(ctx, Event{Kind: KindBegin, Schema: c.schema, LSN: uint64(lsn)})

	case *pglogrepl.CommitMessage:
		c.registry.Publish(ctx, Event{Kind: KindCommit, Schema: c.schema, LSN: uint64(lsn)})

	case *pglogrepl.InsertMessage:
		rel, ok := c.relations[m.RelationID]
		if !ok {
			c.registry.Publish(ctx, errorEvent(c.schema, "", fmt.Errorf("cdc: insert for unknown relation %d", m.RelationID)))
			return
		}
		payload, err := decodeTuple(rel, m.Tuple)
		if err != nil {
			c.registry.Publish(ctx, errorEvent(c.schema, rel.RelationName, err))
			return
		}
		c.registry.Publish(ctx, Event{
			Kind: KindInsert, Schema: c.schema, Table: rel.RelationName, LSN: uint64(lsn),
			New: c.remap(rel.RelationName, payload),
		})

	case *pglogrepl.UpdateMessage:
		rel, ok := c.relations[m.RelationID]
		if !ok {
			c.registry.Publish(ctx, errorEvent(c.schema, "", fmt.Errorf("cdc: update for unknown relation %d", m.RelationID)))
			return
		}
		newPayload, err := decodeTuple(rel, m.NewTuple)
		if err != nil {
			c.registry.Publish(ctx, errorEvent(c.schema, rel.RelationName, err))
			return
		}
		var oldPayload map[string]any
		if m.OldTuple != nil {
			oldPayload, _ = decodeTuple(rel, m.OldTuple)
		}
		c.registry.Publish(ctx, Event{
			Kind: KindUpdate, Schema: c.schema, Table: rel.RelationName, LSN: uint64(lsn),
			New: c.remap(rel.RelationName, newPayload),
			Old: c.remap(rel.RelationName, oldPayload),
		})

	case *pglogrepl.DeleteMessage:
		rel, ok := c.relations[m.RelationID]
		if !ok {
			c.registry.Publish(ctx, errorEvent(c.schema, "", fmt.Errorf("cdc: delete for unknown relation %d", m.RelationID)))
			return
		}
		var oldPayload map[string]any
		if m.OldTuple != nil {
			oldPayload, err = decodeTuple(rel, m.OldTuple)
			if err != nil {
				c.registry.Publish(ctx, errorEvent(c.schema, rel.RelationName, err))
				return
			}
		}
		c.registry.Publish(ctx, Event{
			Kind: KindDelete, Schema: c.schema, Table: rel.RelationName, LSN: uint64(lsn),
			Old: c.remap(rel.RelationName, oldPayload),
		})
	}
}

// remap looks up the current catalog snapshot for table and applies
// positional-column remapping to payload. A snapshot miss (unknown table,
// or a refresh failure with no prior snapshot) leaves payload unchanged.
func (c *Consumer) remap(table string, payload map[string]any) map[string]any {
	if payload == nil || c.reflector == nil {
		return payload
	}
	snap, err := c.reflector.Snapshot(context.Background(), c.schema)
	if err != nil {
		return payload
	}
	tbl := snap.Tables[table]
	return remapPositional(payload, tbl)
}

// decodeTuple maps a pgoutput TupleData's positional columns onto rel's
// declared column names. Unchanged-TOAST columns ('u') are omitted, since
// their value wasn't sent on the wire; null columns ('n') decode to a nil
// value; everything else is decoded as its text-format bytes.
func decodeTuple(rel *pglogrepl.RelationMessage, tuple *pglogrepl.TupleData) (map[string]any, error) {
	if tuple == nil {
		return nil, nil
	}
	if len(tuple.Columns) != len(rel.Columns) {
		return nil, fmt.Errorf("cdc: tuple has %d columns, relation %q declares %d",
			len(tuple.Columns), rel.RelationName, len(rel.Columns))
	}
	out := make(map[string]any, len(tuple.Columns))
	for i, col := range tuple.Columns {
		name := rel.Columns[i].Name
		switch col.DataType {
		case 'n':
			out[name] = nil
		case 'u':
			continue
		default:
			out[name] = string(col.Data)
		}
	}
	return out, nil
}
