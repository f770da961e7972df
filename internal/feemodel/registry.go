package feemodel

// Registry maps a fee-model name to a constructor taking the run's
// static model configuration, mirroring strategies.py's FEE_MODELS
// name->class table used to resolve the fee_model option in a strategy
// parameter file. Kelly is not registered here: it depends on an
// external curve-fitting collaborator (CurveGenerator) out of scope for
// this repository, so it is only constructible directly, with a
// caller-supplied generator.
var Registry = map[string]func(ModelConfig) Model{
	"black_scholes": func(ModelConfig) Model { return NewBlackScholes() },
	"aave":          func(cfg ModelConfig) Model { return NewAave(cfg.ToAaveParams()) },
}
