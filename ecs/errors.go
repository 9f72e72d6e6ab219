package ecs

import "errors"

// ErrContractViolation marks the programmer-error class of failure spec §7
// calls out: component type collisions, reading a missing component,
// exceeding capacity, decrementing a zero chain link. Callers use
// errors.Is/errors.As against this sentinel to distinguish contract
// violations from ordinary recoverable data errors; synchros must never
// let one propagate past their own boundary (spec §7 "errors never cross
// the synchro boundary").
var ErrContractViolation = errors.New("contract violation")
