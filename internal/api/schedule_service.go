package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agenda/internal/database"
	"agenda/internal/models"
	"agenda/internal/schedule"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	scheduleServiceName  = "agenda.schedule.v1.ScheduleService"
	checkConflictMethod  = "/" + scheduleServiceName + "/CheckConflict"
	classifyStatusMethod = "/" + scheduleServiceName + "/ClassifyStatus"
)

// ScheduleServer is the gRPC surface of the schedule rules. Messages are
// google.protobuf.Struct values carrying the same JSON shape as the HTTP API.
type ScheduleServer interface {
	CheckConflict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ClassifyStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ShowQuerier is the read side of the show store used by the gRPC service.
type ShowQuerier interface {
	GetShow(ctx context.Context, id int64) (*models.Show, error)
	CheckConflict(ctx context.Context, candidate models.Show) (*models.Show, error)
}

var scheduleServiceDesc = grpc.ServiceDesc{
	ServiceName: scheduleServiceName,
	HandlerType: (*ScheduleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckConflict", Handler: unaryHandler(checkConflictMethod, ScheduleServer.CheckConflict)},
		{MethodName: "ClassifyStatus", Handler: unaryHandler(classifyStatusMethod, ScheduleServer.ClassifyStatus)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agenda/schedule/v1/schedule.proto",
}

func RegisterScheduleServer(s grpc.ServiceRegistrar, srv ScheduleServer) {
	s.RegisterService(&scheduleServiceDesc, srv)
}

type methodFunc func(ScheduleServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call methodFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ScheduleServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ScheduleServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type ScheduleService struct {
	shows ShowQuerier
	clock schedule.Clock
}

func NewScheduleService(shows ShowQuerier, clock schedule.Clock) *ScheduleService {
	if clock == nil {
		clock = schedule.RealClock{}
	}
	return &ScheduleService{shows: shows, clock: clock}
}

// CheckConflict expects {"show": {...}} and answers {"conflict": bool, "with": {...}}.
func (s *ScheduleService) CheckConflict(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	show, err := showField(req)
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, status.Error(codes.InvalidArgument, "show is required")
	}

	other, err := s.shows.CheckConflict(ctx, *show)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to check conflicts")
	}
	resp := map[string]any{"conflict": other != nil}
	if other != nil {
		resp["with"] = other
	}
	return toStruct(resp)
}

// ClassifyStatus expects {"id": n} or {"show": {...}} plus an optional RFC 3339 "now".
func (s *ScheduleService) ClassifyStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	now := s.clock.Now()
	if raw, ok := req.GetFields()["now"]; ok {
		parsed, err := time.Parse(time.RFC3339, raw.GetStringValue())
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "now must be RFC 3339")
		}
		now = parsed
	}

	show, err := showField(req)
	if err != nil {
		return nil, err
	}
	if show == nil {
		id := int64(req.GetFields()["id"].GetNumberValue())
		if id <= 0 {
			return nil, status.Error(codes.InvalidArgument, "id or show is required")
		}
		show, err = s.shows.GetShow(ctx, id)
		if errors.Is(err, database.ErrShowNotFound) {
			return nil, status.Error(codes.NotFound, "show not found")
		}
		if err != nil {
			return nil, status.Error(codes.Internal, "failed to load show")
		}
	}
	return toStruct(schedule.Classify(*show, now))
}

func showField(req *structpb.Struct) (*models.Show, error) {
	field, ok := req.GetFields()["show"]
	if !ok || field.GetStructValue() == nil {
		return nil, nil
	}
	raw, err := json.Marshal(field.GetStructValue().AsMap())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid show")
	}
	var show models.Show
	if err := json.Unmarshal(raw, &show); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid show: %v", err)
	}
	return &show, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
