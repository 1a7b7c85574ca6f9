package solax

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/nerrad567/solax-bridge/internal/infrastructure/mqtt"
)

const timeSyncResponseRoot = "respsynctime"

// timeSyncResponse is the clock an inverter asks for on reqsynctime. The
// firmware expects every component as an unpadded decimal string.
type timeSyncResponse struct {
	Year   string `json:"year"`
	Month  string `json:"month"`
	Day    string `json:"day"`
	Hour   string `json:"hour"`
	Minute string `json:"minute"`
	Second string `json:"second"`
}

// TimeSyncResponse builds the reply to a time-sync request from the
// inverter with the given serial. It is stateless; now should already be in
// the site time zone.
func TimeSyncResponse(serial string, now time.Time) (topic string, payload []byte) {
	resp := timeSyncResponse{
		Year:   strconv.Itoa(now.Year()),
		Month:  strconv.Itoa(int(now.Month())),
		Day:    strconv.Itoa(now.Day()),
		Hour:   strconv.Itoa(now.Hour()),
		Minute: strconv.Itoa(now.Minute()),
		Second: strconv.Itoa(now.Second()),
	}
	payload, _ = json.Marshal(resp) //nolint:errcheck // struct of strings always marshals
	return mqtt.JoinTopic(timeSyncResponseRoot, serial), payload
}
