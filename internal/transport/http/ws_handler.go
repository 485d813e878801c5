package http

import (
	"net/http"

	"exam-sync-service/internal/app"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ResultsFeed pushes every authoritative result write to connected
// dashboards over a websocket.
type ResultsFeed struct {
	service  *app.ExamService
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

func NewResultsFeed(service *app.ExamService, log *logrus.Entry) *ResultsFeed {
	return &ResultsFeed{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type feedMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeResults upgrades the request and streams the current listing followed
// by live result updates until the client disconnects.
func (f *ResultsFeed) ServeResults(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if f.log != nil {
			f.log.WithError(err).Warn("ws upgrade failed")
		}
		return
	}
	defer conn.Close()

	results, err := f.service.ListResults(r.Context())
	if err != nil {
		_ = conn.WriteJSON(feedMessage{Type: "error", Payload: map[string]string{"message": err.Error()}})
		return
	}
	views := make([]resultView, 0, len(results))
	for _, result := range results {
		views = append(views, toResultView(result))
	}
	if err := conn.WriteJSON(feedMessage{Type: "results", Payload: views}); err != nil {
		return
	}

	updates, cancel := f.service.SubscribeResults()
	defer cancel()

	// Drain the read side so close frames are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case result, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(feedMessage{Type: "result", Payload: toResultView(result)}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
