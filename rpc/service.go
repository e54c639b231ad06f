package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	MLServiceName        = "healthcare.ml.v1.MLService"
	AnalyticsServiceName = "healthcare.analytics.v1.AnalyticsService"
)

type MLServiceServer interface {
	PredictNoShow(context.Context, *PredictNoShowRequest) (*NoShowPrediction, error)
	PredictTreatmentOutcome(context.Context, *PredictTreatmentOutcomeRequest) (*TreatmentOutcome, error)
	AssessReadmissionRisk(context.Context, *AssessReadmissionRiskRequest) (*ReadmissionRisk, error)
	GetTreatmentRecommendations(context.Context, *GetTreatmentRecommendationsRequest) (*TreatmentRecommendations, error)
	AnalyzeDrugInteractions(context.Context, *AnalyzeDrugInteractionsRequest) (*DrugInteractions, error)
}

type AnalyticsServiceServer interface {
	GetAppointmentNoShowPredictions(context.Context, *GetAppointmentNoShowPredictionsRequest) (*GetAppointmentNoShowPredictionsResponse, error)
	GetPatientRiskPredictions(context.Context, *GetPatientRiskPredictionsRequest) (*GetPatientRiskPredictionsResponse, error)
	GetResourceUtilizationPredictions(context.Context, *GetResourceUtilizationPredictionsRequest) (*GetResourceUtilizationPredictionsResponse, error)
}

type handlerFunc = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

// unary adapts a typed server method into a grpc method handler.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) handlerFunc {
	fullMethod := "/" + service + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		invoke := func(ctx context.Context, req interface{}) (interface{}, error) {
			resp, err := call(srv.(S), ctx, req.(*Req))
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
		if interceptor == nil {
			return invoke(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, invoke)
	}
}

var mlServiceDesc = grpc.ServiceDesc{
	ServiceName: MLServiceName,
	HandlerType: (*MLServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PredictNoShow", Handler: unary(MLServiceName, "PredictNoShow", MLServiceServer.PredictNoShow)},
		{MethodName: "PredictTreatmentOutcome", Handler: unary(MLServiceName, "PredictTreatmentOutcome", MLServiceServer.PredictTreatmentOutcome)},
		{MethodName: "AssessReadmissionRisk", Handler: unary(MLServiceName, "AssessReadmissionRisk", MLServiceServer.AssessReadmissionRisk)},
		{MethodName: "GetTreatmentRecommendations", Handler: unary(MLServiceName, "GetTreatmentRecommendations", MLServiceServer.GetTreatmentRecommendations)},
		{MethodName: "AnalyzeDrugInteractions", Handler: unary(MLServiceName, "AnalyzeDrugInteractions", MLServiceServer.AnalyzeDrugInteractions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "healthcare/ml/v1/ml_service.proto",
}

var analyticsServiceDesc = grpc.ServiceDesc{
	ServiceName: AnalyticsServiceName,
	HandlerType: (*AnalyticsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetAppointmentNoShowPredictions", Handler: unary(AnalyticsServiceName, "GetAppointmentNoShowPredictions", AnalyticsServiceServer.GetAppointmentNoShowPredictions)},
		{MethodName: "GetPatientRiskPredictions", Handler: unary(AnalyticsServiceName, "GetPatientRiskPredictions", AnalyticsServiceServer.GetPatientRiskPredictions)},
		{MethodName: "GetResourceUtilizationPredictions", Handler: unary(AnalyticsServiceName, "GetResourceUtilizationPredictions", AnalyticsServiceServer.GetResourceUtilizationPredictions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "healthcare/analytics/v1/analytics.proto",
}

func RegisterMLServiceServer(s grpc.ServiceRegistrar, srv MLServiceServer) {
	s.RegisterService(&mlServiceDesc, srv)
}

func RegisterAnalyticsServiceServer(s grpc.ServiceRegistrar, srv AnalyticsServiceServer) {
	s.RegisterService(&analyticsServiceDesc, srv)
}

// Dial opens a lazy client connection that speaks the JSON codec.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	return grpc.NewClient(addr, opts...)
}

// MLClient is the client side of MLService.
type MLClient struct {
	cc grpc.ClientConnInterface
}

func NewMLClient(cc grpc.ClientConnInterface) *MLClient {
	return &MLClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, service, method string, in interface{}, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MLClient) PredictNoShow(ctx context.Context, in *PredictNoShowRequest, opts ...grpc.CallOption) (*NoShowPrediction, error) {
	return invoke[NoShowPrediction](ctx, c.cc, MLServiceName, "PredictNoShow", in, opts...)
}

func (c *MLClient) PredictTreatmentOutcome(ctx context.Context, in *PredictTreatmentOutcomeRequest, opts ...grpc.CallOption) (*TreatmentOutcome, error) {
	return invoke[TreatmentOutcome](ctx, c.cc, MLServiceName, "PredictTreatmentOutcome", in, opts...)
}

func (c *MLClient) AssessReadmissionRisk(ctx context.Context, in *AssessReadmissionRiskRequest, opts ...grpc.CallOption) (*ReadmissionRisk, error) {
	return invoke[ReadmissionRisk](ctx, c.cc, MLServiceName, "AssessReadmissionRisk", in, opts...)
}

func (c *MLClient) GetTreatmentRecommendations(ctx context.Context, in *GetTreatmentRecommendationsRequest, opts ...grpc.CallOption) (*TreatmentRecommendations, error) {
	return invoke[TreatmentRecommendations](ctx, c.cc, MLServiceName, "GetTreatmentRecommendations", in, opts...)
}

func (c *MLClient) AnalyzeDrugInteractions(ctx context.Context, in *AnalyzeDrugInteractionsRequest, opts ...grpc.CallOption) (*DrugInteractions, error) {
	return invoke[DrugInteractions](ctx, c.cc, MLServiceName, "AnalyzeDrugInteractions", in, opts...)
}

// AnalyticsClient is the client side of AnalyticsService.
type AnalyticsClient struct {
	cc grpc.ClientConnInterface
}

func NewAnalyticsClient(cc grpc.ClientConnInterface) *AnalyticsClient {
	return &AnalyticsClient{cc: cc}
}

func (c *AnalyticsClient) GetAppointmentNoShowPredictions(ctx context.Context, in *GetAppointmentNoShowPredictionsRequest, opts ...grpc.CallOption) (*GetAppointmentNoShowPredictionsResponse, error) {
	return invoke[GetAppointmentNoShowPredictionsResponse](ctx, c.cc, AnalyticsServiceName, "GetAppointmentNoShowPredictions", in, opts...)
}

func (c *AnalyticsClient) GetPatientRiskPredictions(ctx context.Context, in *GetPatientRiskPredictionsRequest, opts ...grpc.CallOption) (*GetPatientRiskPredictionsResponse, error) {
	return invoke[GetPatientRiskPredictionsResponse](ctx, c.cc, AnalyticsServiceName, "GetPatientRiskPredictions", in, opts...)
}

func (c *AnalyticsClient) GetResourceUtilizationPredictions(ctx context.Context, in *GetResourceUtilizationPredictionsRequest, opts ...grpc.CallOption) (*GetResourceUtilizationPredictionsResponse, error) {
	return invoke[GetResourceUtilizationPredictionsResponse](ctx, c.cc, AnalyticsServiceName, "GetResourceUtilizationPredictions", in, opts...)
}
