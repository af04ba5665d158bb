package runstats

// Stage is a Pokemon's evolution_stage.
type Stage string

const (
	StageBasic        Stage = "basic"
	StageMiddle       Stage = "middle"
	StageFullyEvolved Stage = "fully_evolved"
	StageSingle       Stage = "single_stage"
)

// Gen 1 chains: position of each pokedex number within its line.
var middleStages = map[int]bool{ //nolint:gochecknoglobals // static dex table
	2: true, 5: true, 8: true, 11: true, 14: true, 17: true, 30: true, 33: true, 44: true,
	61: true, 64: true, 67: true, 70: true, 75: true, 93: true, 148: true,
}

var finalStages = map[int]bool{ //nolint:gochecknoglobals // static dex table
	3: true, 6: true, 9: true, 12: true, 15: true, 18: true, 20: true, 22: true, 24: true,
	26: true, 28: true, 31: true, 34: true, 36: true, 38: true, 40: true, 42: true, 45: true,
	47: true, 49: true, 51: true, 53: true, 55: true, 57: true, 59: true, 62: true, 65: true,
	68: true, 71: true, 73: true, 76: true, 78: true, 80: true, 82: true, 85: true, 87: true,
	89: true, 91: true, 94: true, 97: true, 99: true, 101: true, 103: true, 105: true, 110: true,
	112: true, 117: true, 119: true, 121: true, 130: true, 134: true, 135: true, 136: true,
	139: true, 141: true, 149: true,
}

var singleStages = map[int]bool{ //nolint:gochecknoglobals // static dex table
	83: true, 95: true, 106: true, 107: true, 108: true, 113: true, 114: true, 115: true,
	122: true, 123: true, 124: true, 125: true, 126: true, 127: true, 128: true, 131: true,
	132: true, 137: true, 142: true, 143: true, 144: true, 145: true, 146: true, 150: true, 151: true,
}

// StageOf returns the evolution stage of a Gen 1 pokedex number. Numbers
// outside the table are basic.
func StageOf(dex int) Stage {
	switch {
	case singleStages[dex]:
		return StageSingle
	case middleStages[dex]:
		return StageMiddle
	case finalStages[dex]:
		return StageFullyEvolved
	default:
		return StageBasic
	}
}

// IsEvolved reports whether a Pokemon at stage s evolved from something.
func (s Stage) IsEvolved() bool {
	return s == StageMiddle || s == StageFullyEvolved
}
