//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/storm-feature-detect/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-feature-detect/internal/grid"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the duration of the test and
// returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("storm-detect-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// lowTrack is where the synthetic low sits at each timestep, in degrees.
var lowTrack = [][2]float64{{20, 140}, {22.5, 137.5}, {25, 135}}

// writeTrackArchive writes a 2.5° global archive with one warm-core low per
// timestep following lowTrack.
func writeTrackArchive(t *testing.T) string {
	t.Helper()
	var lat, lon []float64
	for v := -90.0; v <= 90; v += 2.5 {
		lat = append(lat, v)
	}
	for v := 0.0; v < 360; v += 2.5 {
		lon = append(lon, v)
	}
	n := len(lat) * len(lon)

	fields := map[string][][]float64{}
	for _, name := range []string{"PSL", "U850", "V850", "T200", "T500"} {
		fields[name] = make([][]float64, len(lowTrack))
	}
	times := make([]time.Time, len(lowTrack))
	for step, c := range lowTrack {
		times[step] = time.Date(2019, 10, 10, 6*step, 0, 0, 0, time.UTC)
		psl, u, v := make([]float64, n), make([]float64, n), make([]float64, n)
		t200, t500 := make([]float64, n), make([]float64, n)
		for j, la := range lat {
			for i, lo := range lon {
				k := j*len(lon) + i
				d := grid.GreatCircleDeg(rad(la), rad(lo), rad(c[0]), rad(c[1]))
				psl[k] = 101000 - 4000*math.Exp(-d*d/25)
				u[k] = 35 * math.Exp(-(d-4)*(d-4)/4)
				t200[k] = 220 + 6*math.Exp(-d*d/16)
				t500[k] = 255 + 4*math.Exp(-d*d/16)
			}
		}
		fields["PSL"][step], fields["U850"][step], fields["V850"][step] = psl, u, v
		fields["T200"][step], fields["T500"][step] = t200, t500
	}

	path := filepath.Join(t.TempDir(), "track.nc")
	fh, err := os.Create(path)
	require.NoError(t, err)
	defer fh.Close()
	require.NoError(t, netcdf.Write(fh, netcdf.Dataset{Lat: lat, Lon: lon, Times: times, Fields: fields}))
	return path
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
