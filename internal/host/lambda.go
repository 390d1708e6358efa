package host

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/sirupsen/logrus"
)

// Invoker is the subset of *lambda.Client the host needs.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaSlot is one region's client.
type LambdaSlot struct {
	Region string
	Client Invoker
}

// LambdaHost invokes the fetch function in several AWS regions, one slot each.
type LambdaHost struct {
	function string
	slots    []LambdaSlot
	logger   *logrus.Logger
}

// NewLambdaHost loads the default AWS credential chain once per region.
func NewLambdaHost(ctx context.Context, function string, regions []string, logger *logrus.Logger) (*LambdaHost, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: lambda host needs at least one region", errs.ErrConfig)
	}
	slots := make([]LambdaSlot, 0, len(regions))
	for _, r := range regions {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(r))
		if err != nil {
			return nil, fmt.Errorf("load aws config for %s: %w", r, err)
		}
		slots = append(slots, LambdaSlot{Region: r, Client: lambda.NewFromConfig(cfg)})
	}
	return NewLambdaHostFromSlots(function, slots, logger), nil
}

func NewLambdaHostFromSlots(function string, slots []LambdaSlot, logger *logrus.Logger) *LambdaHost {
	if logger == nil {
		logger = logrus.New()
	}
	return &LambdaHost{function: function, slots: slots, logger: logger}
}

func (h *LambdaHost) Name() string  { return "lambda" }
func (h *LambdaHost) BulkSize() int { return len(h.slots) }

func (h *LambdaHost) Invoke(ctx context.Context, batches [][]models.Request) []SlotResult {
	return invokeAll(ctx, batches, func(ctx context.Context, slot int, batch []models.Request) ([]models.Response, error) {
		if slot >= len(h.slots) {
			return nil, fmt.Errorf("%w: no region for slot %d", errs.ErrRemoteInvocation, slot)
		}
		return h.invoke(ctx, h.slots[slot], batch)
	})
}

func (h *LambdaHost) invoke(ctx context.Context, slot LambdaSlot, batch []models.Request) ([]models.Response, error) {
	payload, err := models.EncodeRequests(batch)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	h.logger.WithFields(logrus.Fields{"region": slot.Region, "requests": len(batch)}).Debug("invoking lambda slot")
	out, err := slot.Client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(h.function),
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrRemoteInvocation, slot.Region, err)
	}
	if out.FunctionError != nil {
		return nil, errs.Runtime(fmt.Sprintf("%s: %s", aws.ToString(out.FunctionError), out.Payload))
	}
	if len(out.Payload) == 0 {
		return nil, errs.ErrNoPayload
	}
	if out.StatusCode != 200 {
		return nil, errs.Status(int(out.StatusCode), string(out.Payload))
	}
	return decodeResponses(out.Payload)
}
