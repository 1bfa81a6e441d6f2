package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/service"
)

// BookingServiceName is served without generated stubs: every method takes
// and returns a google.protobuf.Struct holding the same JSON the HTTP API uses.
const BookingServiceName = "toolshare.v1.BookingService"

type bookingRPC interface {
	Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	TransitionBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type BookingHandler struct {
	bookings service.BookingService
}

func NewBookingHandler(bookings service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

var bookingServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*bookingRPC)(nil),
	Methods: []grpc.MethodDesc{
		structMethod("Quote", bookingRPC.Quote),
		structMethod("CreateBooking", bookingRPC.CreateBooking),
		structMethod("TransitionBooking", bookingRPC.TransitionBooking),
		structMethod("GetBooking", bookingRPC.GetBooking),
		structMethod("ListBookings", bookingRPC.ListBookings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "toolshare/v1/booking.proto",
}

func structMethod(name string, call func(bookingRPC, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + BookingServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, intercept grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(bookingRPC), ctx, req.(*structpb.Struct))
			}
			if intercept == nil {
				return handler(ctx, in)
			}
			return intercept(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, handler)
		},
	}
}

func (h *BookingHandler) Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	toolID, err := idField(req, "tool_id")
	if err != nil {
		return nil, err
	}
	quote, err := h.bookings.Quote(ctx, toolID, stringField(req, "start_date"), stringField(req, "end_date"))
	if err != nil {
		return nil, err
	}
	return toStruct(quote)
}

func (h *BookingHandler) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	toolID, err := idField(req, "tool_id")
	if err != nil {
		return nil, err
	}
	booking, err := h.bookings.CreateBooking(ctx, actor, toolID, stringField(req, "start_date"), stringField(req, "end_date"))
	if err != nil {
		return nil, err
	}
	return toStruct(booking)
}

func (h *BookingHandler) TransitionBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(req, "booking_id")
	if err != nil {
		return nil, err
	}
	action, err := domain.ParseBookingAction(stringField(req, "action"))
	if err != nil {
		return nil, err
	}
	booking, err := h.bookings.Transition(ctx, id, action, actor)
	if err != nil {
		return nil, err
	}
	return toStruct(booking)
}

func (h *BookingHandler) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := idField(req, "booking_id")
	if err != nil {
		return nil, err
	}
	booking, err := h.bookings.GetBooking(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toStruct(booking)
}

// ListBookings returns {"bookings": [...]} for role "renter" (default) or "owner".
func (h *BookingHandler) ListBookings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := sessionUser(ctx)
	if err != nil {
		return nil, err
	}
	var bookings []domain.Booking
	switch role := stringField(req, "role"); role {
	case "", "renter":
		bookings, err = h.bookings.ListRentals(ctx, actor)
	case "owner":
		bookings, err = h.bookings.ListRequests(ctx, actor)
	default:
		return nil, domain.NewValidationError("unknown role %q", role)
	}
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	return toStruct(map[string]any{"bookings": bookings})
}

func sessionUser(ctx context.Context) (string, error) {
	session, ok := domain.SessionFromContext(ctx)
	if !ok {
		return "", domain.NewUnauthenticatedError("session required")
	}
	return session.Username, nil
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func idField(req *structpb.Struct, key string) (int64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, domain.NewValidationError("%s is required", key)
	}
	n := v.GetNumberValue()
	if n < 1 || n != float64(int64(n)) {
		return 0, domain.NewValidationError("%s must be a positive integer", key)
	}
	return int64(n), nil
}

// toStruct goes through encoding/json so field names and decimal strings
// match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}
