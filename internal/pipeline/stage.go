package pipeline

// Stage is a step of Process, used in errors and debug logs.
type Stage int

const (
	StageIdle Stage = iota
	StagePreprocessing
	StageExtracting
	StageCropping
	StageRecognizing
	StageValidating
	StageScoring
	StageRanking
	StageDone
)

var stageNames = [...]string{
	StageIdle:          "idle",
	StagePreprocessing: "preprocessing",
	StageExtracting:    "extracting_candidates",
	StageCropping:      "cropping",
	StageRecognizing:   "recognizing",
	StageValidating:    "validating",
	StageScoring:       "scoring",
	StageRanking:       "ranking",
	StageDone:          "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
