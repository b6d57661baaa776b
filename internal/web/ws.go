package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"vidgrab/internal/jobs"
	"vidgrab/internal/progress"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page and API share an origin; non-browser clients send none.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

const writeWait = 10 * time.Second

// wsMessage is the envelope of every websocket frame.
type wsMessage struct {
	Type    string  `json:"type"` // progress, done or error
	Payload jobView `json:"payload"`
}

func messageOf(snap jobs.Snapshot) wsMessage {
	t := "progress"
	if snap.Done {
		t = "done"
		if snap.Stage == progress.StageError {
			t = "error"
		}
	}
	return wsMessage{Type: t, Payload: viewOf(snap)}
}

// streamJob pushes job snapshots until the job finishes or the client leaves.
func (s *Server) streamJob(c *gin.Context) {
	job, ok := s.lookup(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Debug("ws upgrade")
		return
	}
	defer conn.Close()

	updates, stop := job.Subscribe()
	defer stop()

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-updates:
			if !ok {
				s.closeStream(conn)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(messageOf(snap)); err != nil {
				s.log.WithError(err).WithField("job", job.ID()).Debug("ws write")
				return
			}
		}
	}
}

func (s *Server) closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
