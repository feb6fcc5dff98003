package wizard

// Step is a stage of the wizard.
type Step int

const (
	StepUpload Step = iota + 1
	StepAudio
	StepVideo
)

// Steps lists the stages in order.
var Steps = []Step{StepUpload, StepAudio, StepVideo}

func (s Step) String() string {
	switch s {
	case StepUpload:
		return "Upload Image"
	case StepAudio:
		return "Generate Audio"
	case StepVideo:
		return "Generate Video"
	default:
		return "Unknown"
	}
}

// Number is the 1-based position shown in the step indicator.
func (s Step) Number() int {
	return int(s)
}
