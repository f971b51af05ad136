package models

// Room is the external media service's view of a live session. The
// participant count includes the host.
type Room struct {
	Name            string `json:"name"`
	NumParticipants int    `json:"numParticipants"`
}

// EgressJob is a recording-style export of a live session started against the
// room service.
type EgressJob struct {
	EgressID string `json:"egressId"`
	RoomName string `json:"roomName"`
	Status   string `json:"status"`
}
