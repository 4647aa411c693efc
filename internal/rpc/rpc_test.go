package rpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wetland-guardian/cienaga-classifier/internal/delivery"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster/rastertest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, svc *delivery.Service) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(svc)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	client, err := NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	return c
}

func TestTrainPredictReload(t *testing.T) {
	dir := t.TempDir()
	rastertest.WetlandScene(t, filepath.Join(dir, "a.tif"), 5, 5, 9)
	svc := delivery.NewService(filepath.Join(t.TempDir(), "model.json"), nil)
	client := startServer(t, svc)

	metrics, err := client.Train(ctx(t), dir, "", false)
	require.NoError(t, err)
	assert.Equal(t, 18.0, metrics["samples"])
	assert.Equal(t, svc.Cache.Path(), metrics["model_path"])

	out := filepath.Join(t.TempDir(), "a_clasificacion.tif")
	summary, err := client.Predict(ctx(t), filepath.Join(dir, "a.tif"), out)
	require.NoError(t, err)
	assert.Equal(t, out, summary["output"])
	assert.Equal(t, 9.0, summary["wetland_pixels"])
	assert.FileExists(t, out)

	reloaded, err := client.Reload(ctx(t))
	require.NoError(t, err)
	assert.Equal(t, 200.0, reloaded["trees"])
}

func TestStatusCodes(t *testing.T) {
	svc := delivery.NewService(filepath.Join(t.TempDir(), "model.json"), nil)
	client := startServer(t, svc)

	_, err := client.Predict(ctx(t), "scene.tif", "")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Predict(ctx(t), "", "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Train(ctx(t), filepath.Join(t.TempDir(), "missing"), "", false)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	dry := t.TempDir()
	rastertest.WetlandScene(t, filepath.Join(dry, "dry.tif"), 4, 4, 0)
	_, err = client.Train(ctx(t), dry, "", false)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.Reload(ctx(t))
	assert.Equal(t, codes.NotFound, status.Code(err))
}
