package dtos

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/uksf/uksf-api/modules/command/domain/commandrequest"
	"github.com/uksf/uksf-api/modules/command/services"
	"github.com/uksf/uksf-api/pkg/constants"
	"github.com/uksf/uksf-api/pkg/serrors"
)

func validate(v any) (serrors.ValidationErrors, bool) {
	err := constants.Validate.Struct(v)
	if err == nil {
		return nil, true
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return serrors.ValidationErrors{"_": err.Error()}, false
	}
	return serrors.ProcessValidatorErrors(errs, nil), false
}

type CreateRequestDTO struct {
	Recipient      string `json:"recipient" validate:"required"`
	Value          string `json:"value"`
	SecondaryValue string `json:"secondaryValue"`
	Reason         string `json:"reason" validate:"required"`
}

func (d *CreateRequestDTO) Ok() (serrors.ValidationErrors, bool) {
	return validate(d)
}

func (d *CreateRequestDTO) ToInput() services.RequestInput {
	return services.RequestInput{
		Recipient:      d.Recipient,
		Value:          d.Value,
		SecondaryValue: d.SecondaryValue,
		Reason:         d.Reason,
	}
}

type CreateLoaDTO struct {
	Start     time.Time `json:"start" validate:"required"`
	End       time.Time `json:"end" validate:"required,gtefield=Start"`
	Reason    string    `json:"reason" validate:"required"`
	Emergency bool      `json:"emergency"`
	Late      bool      `json:"late"`
}

func (d *CreateLoaDTO) Ok() (serrors.ValidationErrors, bool) {
	return validate(d)
}

func (d *CreateLoaDTO) ToInput() services.LoaInput {
	return services.LoaInput{
		Start:     d.Start,
		End:       d.End,
		Reason:    d.Reason,
		Emergency: d.Emergency,
		Late:      d.Late,
	}
}

type ReviewDTO struct {
	ReviewState commandrequest.ReviewState `json:"reviewState" validate:"required,oneof=Pending Approved Rejected"`
	Overridden  bool                       `json:"overridden"`
}

func (d *ReviewDTO) Ok() (serrors.ValidationErrors, bool) {
	return validate(d)
}

// RequestsResponse splits live requests into those awaiting the caller's
// review and the rest.
type RequestsResponse struct {
	MyRequests    []*commandrequest.CommandRequest `json:"myRequests"`
	OtherRequests []*commandrequest.CommandRequest `json:"otherRequests"`
}

func NewRequestsResponse(requests []*commandrequest.CommandRequest, actor string) *RequestsResponse {
	out := &RequestsResponse{
		MyRequests:    []*commandrequest.CommandRequest{},
		OtherRequests: []*commandrequest.CommandRequest{},
	}
	for _, r := range requests {
		if r.HasReviewer(actor) {
			out.MyRequests = append(out.MyRequests, r)
			continue
		}
		out.OtherRequests = append(out.OtherRequests, r)
	}
	return out
}
