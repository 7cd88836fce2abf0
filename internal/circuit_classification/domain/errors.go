package domain

import "errors"

var (
	ErrEmptyTrace         = errors.New("insufficient trace data")
	ErrNoFeatures         = errors.New("no features extracted")
	ErrNotTrained         = errors.New("the model has not been trained")
	ErrUnrecognizedFormat = errors.New("unrecognized format")
	ErrUnknownClassifier  = errors.New("unknown classifier")
	ErrModelNotFound      = errors.New("model not found")
	ErrDecisionNotFound   = errors.New("decision not found")
	ErrNoModelLoaded      = errors.New("no model loaded")
	ErrInvalidTrace       = errors.New("invalid trace")
	ErrEmptyPipeline      = errors.New("pipeline has no stages")
	ErrDimensionMismatch  = errors.New("feature dimension mismatch")
	ErrListingUnsupported = errors.New("model store cannot list models")
)
