package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tamas-pataky/cultiva-node/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// terminalCommand is what the web terminal sends: the command name and the
// line the user typed.
type terminalCommand struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

type terminalEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// terminal serialises writes to one websocket connection.
type terminal struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *terminal) send(event string, data interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(terminalEvent{Event: event, Data: data})
}

// Write streams one formatted log line to the terminal.
func (t *terminal) Write(p []byte) (int, error) {
	if err := t.send("log", strings.TrimRight(string(p), "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

// terminalArguments keeps the first word the user typed after the command
// name, if any.
func terminalArguments(cmd terminalCommand) []string {
	fields := strings.Fields(strings.ReplaceAll(cmd.Input, cmd.Type, ""))
	if len(fields) == 0 {
		return nil
	}
	return fields[:1]
}

func (service *Service) apiTerminal(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("terminal upgrade failed")
		return
	}
	defer conn.Close()

	t := &terminal{conn: conn}
	logger := services.ExtraLogger("Terminal", zerolog.ConsoleWriter{Out: t, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}})

	for {
		var cmd terminalCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("terminal closed")
			}
			return
		}

		result := service.Commands.Run(logger.WithContext(r.Context()), cmd.Type, terminalArguments(cmd))
		if err := t.send("log", result.Result); err != nil {
			return
		}
		if err := t.send("result", result.Success); err != nil {
			return
		}
	}
}
