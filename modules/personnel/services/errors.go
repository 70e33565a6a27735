package services

import "github.com/uksf/uksf-api/pkg/serrors"

var (
	ErrUnknownChainMode = serrors.NewError("CHAIN_UNKNOWN_MODE", "unknown chain of command mode", "")
	ErrUnitNotFound     = serrors.NewError("PERSONNEL_UNIT_NOT_FOUND", "unit not found", "")
	ErrAccountNotFound  = serrors.NewError("PERSONNEL_ACCOUNT_NOT_FOUND", "account not found", "")
	ErrRankNotFound     = serrors.NewError("PERSONNEL_RANK_NOT_FOUND", "rank not found", "")
	ErrRoleNotFound     = serrors.NewError("PERSONNEL_ROLE_NOT_FOUND", "role not found", "")
)
