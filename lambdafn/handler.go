// Package lambdafn runs calcflow units on the AWS Lambda Go runtime.
package lambdafn

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambda/messages"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog"
	"github.com/sicko7947/calcflow"
)

// HandlerFunc is the Lambda handler signature for a unit
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (calcflow.InvocationResult, error)

// Handler adapts unit to the Lambda runtime.
// Errors are reported with the calcflow error code as errorType.
func Handler(unit *calcflow.Unit, logger zerolog.Logger) HandlerFunc {
	logger = logger.With().Str("unit", unit.ID).Logger()

	return func(ctx context.Context, payload json.RawMessage) (calcflow.InvocationResult, error) {
		reqLogger := logger
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			reqLogger = logger.With().Str("aws_request_id", lc.AwsRequestID).Logger()
		}

		result, err := unit.Process(ctx, payload, reqLogger)
		if err != nil {
			ie := calcflow.ToInvocationError(err)
			return calcflow.InvocationResult{}, messages.InvokeResponse_Error{
				Message: ie.Message,
				Type:    ie.Code,
			}
		}
		return result, nil
	}
}

// Start hands the unit to the Lambda runtime. It does not return.
func Start(unit *calcflow.Unit, logger zerolog.Logger) {
	logger.Info().Str("unit", unit.ID).Msg("Starting Lambda handler")
	lambda.Start(Handler(unit, logger))
}
