package external

import (
	"bufio"
	"io"

	"github.com/go-errors/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is one line sent to a plugin process.
//
// Methods:
//   - "define": Function names a function the game wants to call; the plugin
//     answers true or an error when it does not provide it.
//   - "call": Function is called with Params, each a number or a string.
type Request struct {
	ID       string        `json:"id"`
	Method   string        `json:"method"`
	Function string        `json:"function"`
	Params   []interface{} `json:"params,omitempty"`
}

// Response is one line received from a plugin process.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Handler implements one plugin function.
type Handler func(params []interface{}) (interface{}, error)

// Serve runs the plugin side of the protocol until r is exhausted. Plugins
// written in Go call it from main with os.Stdin and os.Stdout.
func Serve(r io.Reader, w io.Writer, handlers map[string]Handler) error {
	scanner := bufio.NewScanner(r)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			if err := encoder.Encode(Response{Error: "parse error: " + err.Error()}); err != nil {
				return errors.Wrap(err, 0)
			}
			continue
		}

		resp := Response{ID: req.ID}
		handler, ok := handlers[req.Function]
		switch {
		case !ok:
			resp.Error = "unknown function: " + req.Function
		case req.Method == "define":
			resp.Result = true
		case req.Method == "call":
			result, err := handler(req.Params)
			if err != nil {
				resp.Error = err.Error()
			} else {
				resp.Result = result
			}
		default:
			resp.Error = "unknown method: " + req.Method
		}

		if err := encoder.Encode(resp); err != nil {
			return errors.Wrap(err, 0)
		}
	}
	return scanner.Err()
}
