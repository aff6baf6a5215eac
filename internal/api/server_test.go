package api

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"agenda/internal/config"
	"agenda/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func startGRPC(t *testing.T, cfg config.APIConfig) *grpc.ClientConn {
	t.Helper()
	svc := newTestServices(t)
	ctx := context.Background()
	show := models.Show{Location: "Bar do Zé", Date: "2025-11-20", StartTime: "22:00", EndTime: "01:00", Status: models.ShowConfirmed}
	require.NoError(t, svc.Shows.SaveShow(ctx, &show))
	require.Equal(t, int64(1), show.ID)

	lis := bufconn.Listen(1 << 20)
	logger := zerolog.New(io.Discard)
	srv, err := newGRPCServer(&cfg, NewScheduleService(svc.Shows, svc.Clock), lis, &logger)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, method, in, out)
	return out, err
}

func TestScheduleService_CheckConflict(t *testing.T) {
	conn := startGRPC(t, config.APIConfig{Enabled: true})
	ctx := context.Background()

	tests := []struct {
		name     string
		start    string
		end      string
		conflict bool
	}{
		{"early morning of the same date", "00:30", "02:00", false},
		{"inside margin before", "20:00", "21:45", true},
		{"exactly thirty minutes before", "19:30", "21:30", false},
		{"inside the show", "23:00", "23:30", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := invoke(ctx, conn, checkConflictMethod, map[string]any{
				"show": map[string]any{"location": "Outro", "date": "2025-11-20", "startTime": tt.start, "endTime": tt.end},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.conflict, resp.GetFields()["conflict"].GetBoolValue())
			if tt.conflict {
				assert.Equal(t, "Bar do Zé", resp.GetFields()["with"].GetStructValue().GetFields()["location"].GetStringValue())
			}
		})
	}

	_, err := invoke(ctx, conn, checkConflictMethod, map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestScheduleService_ClassifyStatus(t *testing.T) {
	conn := startGRPC(t, config.APIConfig{Enabled: true})
	ctx := context.Background()

	resp, err := invoke(ctx, conn, classifyStatusMethod, map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, "Confirmado", resp.GetFields()["text"].GetStringValue())

	resp, err = invoke(ctx, conn, classifyStatusMethod, map[string]any{"id": 1, "now": "2025-11-21T00:30:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "Em Andamento", resp.GetFields()["text"].GetStringValue())

	resp, err = invoke(ctx, conn, classifyStatusMethod, map[string]any{
		"show": map[string]any{"date": "2025-11-19", "startTime": "20:00", "endTime": "22:00", "status": "Agendado"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Concluído", resp.GetFields()["text"].GetStringValue())
	assert.True(t, resp.GetFields()["isTerminal"].GetBoolValue())

	_, err = invoke(ctx, conn, classifyStatusMethod, map[string]any{"id": 42})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = invoke(ctx, conn, classifyStatusMethod, map[string]any{"id": 1, "now": "tomorrow"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCServer_Auth(t *testing.T) {
	conn := startGRPC(t, config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "reader", Extra: "r-extra", Permissions: []string{permReadShows}},
				{Key: "writer", Extra: "w-extra", Permissions: []string{permWriteShows}},
			},
		},
	})
	req := map[string]any{"id": 1}

	_, err := invoke(context.Background(), conn, classifyStatusMethod, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "writer", "x-api-extra", "w-extra")
	_, err = invoke(ctx, conn, classifyStatusMethod, req)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	ctx = metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "reader", "x-api-extra", "r-extra")
	var header metadata.MD
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	err = conn.Invoke(ctx, classifyStatusMethod, in, new(structpb.Struct), grpc.Header(&header))
	require.NoError(t, err)
	assert.NotEmpty(t, header.Get(requestIDMetadataKey))
}

func TestGRPCServer_Health(t *testing.T) {
	conn := startGRPC(t, config.APIConfig{Enabled: true})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: scheduleServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
