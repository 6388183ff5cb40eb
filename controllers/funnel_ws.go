package controller

import (
	"time"

	"github.com/gofiber/websocket/v2"

	"funnelbot/models"
)

type liveFeedFrame struct {
	At         time.Time            `json:"at"`
	Deliveries []models.DeliveryLog `json:"deliveries"`
}

// LiveFeedWS streams recent deliveries to the dashboard, polling every
// few seconds until the client disconnects.
func (fc *FunnelController) LiveFeedWS(c *websocket.Conn) {
	defer c.Close()

	for {
		logs, err := fc.Reader.RecentDeliveries(20)
		if err != nil {
			fc.Logger.Errorf("Error fetching recent deliveries: %v", err)
			return
		}
		if err := c.WriteJSON(liveFeedFrame{At: time.Now(), Deliveries: logs}); err != nil {
			return
		}
		time.Sleep(5 * time.Second)
	}
}
