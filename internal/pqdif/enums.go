package pqdif

import (
	"math"

	"github.com/google/uuid"
)

const unset = math.MaxUint32

// Quantity types.
var (
	QuantityWaveForm = uuid.MustParse("67f6af80-f753-11cf-9d89-0080c72e70a3")
	QuantityPhasor   = uuid.MustParse("67f6af82-f753-11cf-9d89-0080c72e70a3")
)

// Series value types.
var (
	ValueTypeVal  = uuid.MustParse("67f6af97-f753-11cf-9d89-0080c72e70a3")
	ValueTypeTime = uuid.MustParse("c690e872-f755-11cf-9d89-0080c72e70a3")
)

type QuantityMeasured uint32

const (
	QuantityNone    QuantityMeasured = 0
	QuantityVoltage QuantityMeasured = 1
	QuantityCurrent QuantityMeasured = 2
)

type Phase uint32

const (
	PhaseNone     Phase = 0
	PhaseAN       Phase = 1
	PhaseBN       Phase = 2
	PhaseCN       Phase = 3
	PhaseNG       Phase = 4
	PhaseAB       Phase = 5
	PhaseBC       Phase = 6
	PhaseCA       Phase = 7
	PhaseResidual Phase = 8
)

type QuantityUnits uint32

const (
	UnitsNone      QuantityUnits = 0
	UnitsTimestamp QuantityUnits = 1
	UnitsSeconds   QuantityUnits = 2
)
