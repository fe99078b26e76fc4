package natsjetstream

import (
	"context"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/bracket-esports/bracket/common/errors"
)

type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// PublishStruct encodes fields as a protobuf Struct.
func (p *Publisher) PublishStruct(ctx context.Context, subject string, fields map[string]any) *apperrors.AppError {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build event payload")
	}
	return p.PublishProto(ctx, subject, msg)
}

func (p *Publisher) PublishProto(ctx context.Context, subject string, msg proto.Message) *apperrors.AppError {
	data, err := proto.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal proto message")
	}

	return p.Publish(ctx, subject, data)
}

func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) *apperrors.AppError {
	if _, err := p.client.js.Publish(ctx, subject, data); err != nil {
		return apperrors.Wrap(err, apperrors.CodeEventPublishError, "failed to publish message")
	}
	return nil
}
