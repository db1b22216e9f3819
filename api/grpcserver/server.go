package grpcserver

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"tickbook/domain/orderbook"
)

// MaxDepth caps GetDepth; zero in the request means this many levels.
const MaxDepth = 100

// Engine is the read side of service.Engine.
type Engine interface {
	Symbol() string
	BBO() (orderbook.BBO, bool)
	Depth(n int) (bids, asks []orderbook.Level)
}

// Server adapts the engine's queries to gRPC. Order entry is not exposed.
type Server struct {
	eng Engine
}

func NewServer(eng Engine) *Server {
	return &Server{eng: eng}
}

// -------------------- Queries --------------------

func (s *Server) GetBBO(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	bbo, ok := s.eng.BBO()
	if !ok {
		return nil, status.Error(codes.NotFound, "no two-sided market")
	}

	out, err := structpb.NewStruct(map[string]any{
		"symbol":    s.eng.Symbol(),
		"bid_price": u64(bbo.BidPrice),
		"bid_qty":   u64(bbo.BidQuantity),
		"ask_price": u64(bbo.AskPrice),
		"ask_qty":   u64(bbo.AskQuantity),
		"spread":    bbo.Spread,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) GetDepth(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	n := int(req.GetValue())
	if n == 0 || n > MaxDepth {
		n = MaxDepth
	}

	bids, asks := s.eng.Depth(n)
	out, err := structpb.NewStruct(map[string]any{
		"symbol": s.eng.Symbol(),
		"bids":   levels(bids),
		"asks":   levels(asks),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// -------------------- Converters --------------------

// u64 renders prices and quantities as decimal strings; structpb numbers
// are float64 and would round above 2^53.
func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func levels(ls []orderbook.Level) []any {
	out := make([]any, 0, len(ls))
	for _, l := range ls {
		out = append(out, map[string]any{
			"price":  u64(l.Price),
			"qty":    u64(l.Quantity),
			"orders": l.Orders,
		})
	}
	return out
}

// -------------------- Interceptors --------------------

// LoggingInterceptor logs every unary call with its status code.
func LoggingInterceptor(logger *logrus.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		entry := logger.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"code":     status.Code(err).String(),
			"duration": time.Since(start).String(),
		})
		if err != nil && status.Code(err) != codes.NotFound {
			entry.WithError(err).Warn("grpc call failed")
		} else {
			entry.Debug("grpc call")
		}
		return resp, err
	}
}
