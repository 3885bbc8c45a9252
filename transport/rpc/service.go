package rpc

import (
	"golang.org/x/net/context"
	"google.golang.org/grpc"
)

const deliverMethod = "/dtree.Peer/Deliver"

// peerServer receives envelopes sent by other ranks.
type peerServer interface {
	Deliver(ctx context.Context, env *Envelope) (*Ack, error)
}

func registerPeerServer(s *grpc.Server, srv peerServer) {
	s.RegisterService(&peerServiceDesc, srv)
}

func deliverHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Envelope)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(peerServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: deliverMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(peerServer).Deliver(ctx, req.(*Envelope))
	}
	return interceptor(ctx, in, info, handler)
}

var peerServiceDesc = grpc.ServiceDesc{
	ServiceName: "dtree.Peer",
	HandlerType: (*peerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Deliver",
			Handler:    deliverHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dtree.proto",
}

func invokeDeliver(ctx context.Context, cc *grpc.ClientConn, env *Envelope, opts ...grpc.CallOption) error {
	return cc.Invoke(ctx, deliverMethod, env, new(Ack), opts...)
}
