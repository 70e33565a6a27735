package datacontext

import "github.com/uksf/uksf-api/pkg/serrors"

var (
	ErrNotFound = serrors.NewError("DATA_NOT_FOUND", "document not found", "Errors.NotFound")
	ErrNilItem  = serrors.NewError("DATA_NIL_ITEM", "item cannot be nil", "")
)
