package server_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ausocean/spaserve/server"
)

// recordingStage returns a stage that appends its name to calls and reports
// handled.
func recordingStage(name string, calls *[]string, handled bool, err error) server.Stage {
	return server.Stage{
		Name: name,
		Handle: func(c *fiber.Ctx) (bool, error) {
			*calls = append(*calls, name)
			if handled {
				c.Status(fiber.StatusAccepted)
			}
			return handled, err
		},
	}
}

func TestPipeline(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		stages    func(calls *[]string) server.Pipeline
		wantCalls []string
		wantCode  int
	}{
		{
			name: "first handler wins",
			stages: func(calls *[]string) server.Pipeline {
				return server.Pipeline{
					recordingStage("a", calls, false, nil),
					recordingStage("b", calls, true, nil),
					recordingStage("c", calls, true, nil),
				}
			},
			wantCalls: []string{"a", "b"},
			wantCode:  http.StatusAccepted,
		},
		{
			name: "nothing handles",
			stages: func(calls *[]string) server.Pipeline {
				return server.Pipeline{
					recordingStage("a", calls, false, nil),
					recordingStage("b", calls, false, nil),
				}
			},
			wantCalls: []string{"a", "b"},
			wantCode:  http.StatusNotFound,
		},
		{
			name: "error stops",
			stages: func(calls *[]string) server.Pipeline {
				return server.Pipeline{
					recordingStage("a", calls, false, errBoom),
					recordingStage("b", calls, true, nil),
				}
			},
			wantCalls: []string{"a"},
			wantCode:  http.StatusInternalServerError,
		},
		{
			name: "fiber error keeps status",
			stages: func(calls *[]string) server.Pipeline {
				return server.Pipeline{
					recordingStage("a", calls, true, fiber.ErrTeapot),
				}
			},
			wantCalls: []string{"a"},
			wantCode:  http.StatusTeapot,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var calls []string
			p := test.stages(&calls)

			app := fiber.New()
			app.Use(p.Handler())

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, test.wantCode, resp.StatusCode)
			assert.Equal(t, test.wantCalls, calls)
		})
	}
}

func TestPipelineNames(t *testing.T) {
	var calls []string
	p := server.Pipeline{
		recordingStage("cors", &calls, false, nil),
		recordingStage("health", &calls, false, nil),
	}
	assert.Equal(t, []string{"cors", "health"}, p.Names())
}
