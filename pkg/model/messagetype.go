package model

// EventKind identifies the kind of an update event.
type EventKind string

const (
	EKSlotRow          EventKind = "slot.row"
	EKBlankRow         EventKind = "slot.blank"
	EKSlotColumn       EventKind = "slot.column"
	EKSlotGraphPoint   EventKind = "slot.graph"
	EKSlotName         EventKind = "slot.name"
	EKCommentary       EventKind = "commentary"
	EKSafetyMessage    EventKind = "safety"
	EKSessionTime      EventKind = "session.time"
	EKInterpolate      EventKind = "session.interpolate"
	EKClock            EventKind = "session.clock"
	EKWeather          EventKind = "weather"
	EKSpeedTrap        EventKind = "speedtrap"
	EKFastestLap       EventKind = "fastestlap"
	EKRaceStatus       EventKind = "racestatus"
	EKValidity         EventKind = "validity"
	EKModeChange       EventKind = "mode"
	EKRefreshRate      EventKind = "refresh"
	EKConnectionHealth EventKind = "health"
	// EKCountdown carries the locally interpolated session clock.
	EKCountdown        EventKind = "countdown"
)

// SessionMode is announced by the feed and selects the column layout.
type SessionMode int

const (
	ModeUnknown     SessionMode = 0
	ModeRace        SessionMode = 1
	ModePractice    SessionMode = 2
	ModeQualifying  SessionMode = 3
	ModeQualifying1 SessionMode = 4
	ModeQualifying2 SessionMode = 5
)

// Columns returns the number of grid columns displayed in this mode.
func (m SessionMode) Columns() int {
	switch m {
	case ModeRace:
		return 13
	case ModeQualifying1:
		return 9
	case ModeQualifying2:
		return 11
	default:
		return 10
	}
}

func (m SessionMode) String() string {
	switch m {
	case ModeRace:
		return "race"
	case ModePractice:
		return "practice"
	case ModeQualifying:
		return "qualifying"
	case ModeQualifying1:
		return "qualifying1"
	case ModeQualifying2:
		return "qualifying2"
	default:
		return "unknown"
	}
}

// Colour is the colour code of a grid cell.
type Colour uint8

const (
	ColourBlack Colour = iota
	ColourWhite
	ColourRed
	ColourGreen
	ColourMagenta
	ColourBlue
	ColourYellow
	ColourGrey
)

var colourNames = [...]string{"black", "white", "red", "green", "magenta", "blue", "yellow", "grey"}

func (c Colour) String() string {
	if int(c) < len(colourNames) {
		return colourNames[c]
	}
	return "unknown"
}

// Race mode column indexes used by the decoder.
const (
	RaceColPosition  = 1
	RaceColNumber    = 2
	RaceColName      = 3
	RaceColGap       = 4
	RaceColInterval  = 5
	RaceColLapTime   = 6
	RaceColSector3   = 11
	MaxColumns       = 13
	MaxLaps          = 100
	MaxCommentaryTag = 32
)

// Weather channels, carried in c of the weather frame.
const (
	WeatherTrackTemp     = 1
	WeatherAirTemp       = 2
	WeatherWet           = 3
	WeatherWindSpeed     = 4
	WeatherHumidity      = 5
	WeatherPressure      = 6
	WeatherWindDirection = 7
)

// RaceStatus values of the track status flag.
type RaceStatus int

const (
	StatusNone             RaceStatus = 0
	StatusGreen            RaceStatus = 1
	StatusYellow           RaceStatus = 2
	StatusSafetyCarStandby RaceStatus = 3
	StatusSafetyCarDeploy  RaceStatus = 4
	StatusRed              RaceStatus = 5
)

func (s RaceStatus) String() string {
	switch s {
	case StatusGreen:
		return "green"
	case StatusYellow:
		return "yellow"
	case StatusSafetyCarStandby:
		return "sc-standby"
	case StatusSafetyCarDeploy:
		return "sc-deployed"
	case StatusRed:
		return "red"
	default:
		return "none"
	}
}

// Health describes the state of the feed connection.
type Health string

const (
	HealthConnecting Health = "connecting"
	HealthStreaming  Health = "streaming"
	HealthData       Health = "data"
	HealthPinging    Health = "pinging"
	HealthDead       Health = "dead"
	HealthStopped    Health = "stopped"
	HealthError      Health = "error"
)
