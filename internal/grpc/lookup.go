// internal/grpc/lookup.go
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Контракт описан в api/catalog/owner_lookup.proto. Сообщения - well-known типы,
// поэтому дескриптор сервиса написан вручную без кодогенерации.
const (
	ServiceName = "catalog.OwnerLookup"

	checkImdbIDExistsMethod = "/catalog.OwnerLookup/CheckImdbIdExists"
	getOwnerReviewsMethod   = "/catalog.OwnerLookup/GetOwnerReviews"
)

// OwnerLookupServer - серверная часть catalog.OwnerLookup.
type OwnerLookupServer interface {
	CheckImdbIdExists(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	GetOwnerReviews(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var ownerLookupServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OwnerLookupServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckImdbIdExists", Handler: checkImdbIDExistsHandler},
		{MethodName: "GetOwnerReviews", Handler: getOwnerReviewsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/owner_lookup.proto",
}

func RegisterOwnerLookupServer(s grpc.ServiceRegistrar, srv OwnerLookupServer) {
	s.RegisterService(&ownerLookupServiceDesc, srv)
}

func checkImdbIDExistsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OwnerLookupServer).CheckImdbIdExists(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkImdbIDExistsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OwnerLookupServer).CheckImdbIdExists(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getOwnerReviewsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OwnerLookupServer).GetOwnerReviews(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getOwnerReviewsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OwnerLookupServer).GetOwnerReviews(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ownerLookupStub - клиентская часть catalog.OwnerLookup поверх соединения.
type ownerLookupStub struct {
	cc grpc.ClientConnInterface
}

func (c ownerLookupStub) CheckImdbIdExists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, checkImdbIDExistsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c ownerLookupStub) GetOwnerReviews(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, getOwnerReviewsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
