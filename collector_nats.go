package microsim

import (
	"encoding/json"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NatsCollector publishes records as JSON messages to subjects <prefix>.trip, <prefix>.charging and <prefix>.tick.
// Publishing is buffered by the NATS client, so the caller is not blocked by the network.
type NatsCollector struct {
	conn    *nats.Conn
	prefix  string
	failed  atomic.Int64
	ownConn bool
}

// NewNatsCollector connects to NATS server
func NewNatsCollector(url, prefix string) (*NatsCollector, error) {
	conn, err := nats.Connect(url, nats.Name("microsim"))
	if err != nil {
		return nil, errors.Wrapf(err, "Can't connect to NATS server '%s'", url)
	}
	return &NatsCollector{conn: conn, prefix: prefix, ownConn: true}, nil
}

// NewNatsCollectorWithConn publishes over existing connection. Close does not close the connection.
func NewNatsCollectorWithConn(conn *nats.Conn, prefix string) *NatsCollector {
	return &NatsCollector{conn: conn, prefix: prefix}
}

func (c *NatsCollector) publish(kind string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Can't marshal %s record: %s", kind, err.Error())
		return
	}
	if err := c.conn.Publish(c.prefix+"."+kind, data); err != nil {
		if c.failed.Add(1) == 1 {
			log.Warnf("Can't publish %s record: %s", kind, err.Error())
		}
	}
}

func (c *NatsCollector) RecordTrip(rec TripRecord) {
	c.publish("trip", rec)
}

func (c *NatsCollector) RecordCharging(rec ChargingRecord) {
	c.publish("charging", rec)
}

func (c *NatsCollector) RecordTick(rec TickRecord) {
	c.publish("tick", rec)
}

// Failed returns number of records which could not be published
func (c *NatsCollector) Failed() int64 {
	return c.failed.Load()
}

// Close flushes pending messages
func (c *NatsCollector) Close() error {
	if err := c.conn.Flush(); err != nil {
		return errors.Wrap(err, "Can't flush NATS connection")
	}
	if c.ownConn {
		c.conn.Close()
	}
	return nil
}
