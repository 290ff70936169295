package errors

type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidDuration    Code = "INVALID_DURATION"
	CodeUnauthorizedCaller Code = "UNAUTHORIZED_CALLER"
	CodeUnauthorizedSigner Code = "UNAUTHORIZED_SIGNER"
	CodeBadSignature       Code = "BAD_SIGNATURE"
	CodeNonMonotonicUpdate Code = "NON_MONOTONIC_UPDATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInternal           Code = "INTERNAL"
)
