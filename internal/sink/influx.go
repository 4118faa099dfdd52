// influx.go

package sink

import (
	"context"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/reddashi/SbD/internal/coordinator"
)

// Influx writes one point per coordinator cycle into the greenhouse bucket.
// The field set matches the historical collector so existing detection
// notebooks keep working against the same schema.
type Influx struct {
	client   influxdb2.Client
	write    api.WriteAPIBlocking
	location string
	log      *slog.Logger
}

func NewInflux(url, token, org, bucket, location string, log *slog.Logger) *Influx {
	client := influxdb2.NewClient(url, token)
	return &Influx{
		client:   client,
		write:    client.WriteAPIBlocking(org, bucket),
		location: location,
		log:      log.With(slog.String("component", "influx-sink"), slog.String("bucket", bucket)),
	}
}

func (s *Influx) Name() string { return "influx" }

func (s *Influx) Write(ctx context.Context, snap coordinator.Snapshot) error {
	fields := make(map[string]any, len(snap.Sensors)+len(snap.Actuators)+1)
	for k, v := range snap.Sensors {
		fields[k] = v
	}
	for k, v := range snap.Actuators {
		fields[k] = v
	}
	fields["alerts_count"] = len(snap.Alerts)

	p := influxdb2.NewPoint(
		"greenhouse",
		map[string]string{"location": s.location},
		fields,
		snap.Timestamp,
	)
	return s.write.WritePoint(ctx, p)
}

func (s *Influx) Close() error {
	s.client.Close()
	return nil
}
