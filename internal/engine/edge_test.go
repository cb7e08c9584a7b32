package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/yangguo/epub2audio/pkg/types"
)

func TestNewEdgeEngine(t *testing.T) {
	engine := NewEdgeEngine(types.EdgeConfig{})

	if engine.Name() != "edge" {
		t.Errorf("Expected name 'edge', got '%s'", engine.Name())
	}
	if engine.voice != "en-US-BrianNeural" {
		t.Errorf("Expected default voice 'en-US-BrianNeural', got '%s'", engine.voice)
	}
	if engine.rate != "+0%" || engine.volume != "+0%" || engine.pitch != "+0Hz" {
		t.Errorf("Unexpected prosody defaults: rate=%s volume=%s pitch=%s",
			engine.rate, engine.volume, engine.pitch)
	}
}

func TestEscapeSSML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "hello world", "hello world"},
		{"ampersand", "cats & dogs", "cats &amp; dogs"},
		{"angle brackets", "a < b > c", "a &lt; b &gt; c"},
		{"quotes", `say "hi" y'all`, "say &quot;hi&quot; y&apos;all"},
		{"markup", "<voice name='x'/>", "&lt;voice name=&apos;x&apos;/&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeSSML(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSSMLMessage(t *testing.T) {
	engine := NewEdgeEngine(types.EdgeConfig{
		Voice:  "en-GB-SoniaNeural",
		Rate:   "+10%",
		Volume: "-5%",
		Pitch:  "+2Hz",
	})

	msg := engine.ssmlMessage("deadbeef", "Tom & Jerry")
	headers, body := parseWireMessage([]byte(msg))

	if headers["Path"] != "ssml" {
		t.Errorf("Expected Path 'ssml', got '%s'", headers["Path"])
	}
	if headers["X-RequestId"] != "deadbeef" {
		t.Errorf("Expected X-RequestId 'deadbeef', got '%s'", headers["X-RequestId"])
	}
	if headers["Content-Type"] != "application/ssml+xml" {
		t.Errorf("Unexpected Content-Type '%s'", headers["Content-Type"])
	}

	ssml := string(body)
	for _, want := range []string{
		"<voice name='en-GB-SoniaNeural'>",
		"pitch='+2Hz'", "rate='+10%'", "volume='-5%'",
		"Tom &amp; Jerry",
	} {
		if !strings.Contains(ssml, want) {
			t.Errorf("Expected ssml to contain %q, got %q", want, ssml)
		}
	}
}

func TestSpeechConfigMessage(t *testing.T) {
	msg := speechConfigMessage()
	headers, body := parseWireMessage([]byte(msg))

	if headers["Path"] != "speech.config" {
		t.Errorf("Expected Path 'speech.config', got '%s'", headers["Path"])
	}
	if !strings.Contains(string(body), edgeOutputFormat) {
		t.Errorf("Expected config to request output format %q", edgeOutputFormat)
	}
}

func TestParseWireMessage(t *testing.T) {
	headers, body := parseWireMessage([]byte("Path:turn.start\r\nX-RequestId: abc \r\n\r\n{\"x\":1}"))

	if headers["Path"] != "turn.start" {
		t.Errorf("Expected Path 'turn.start', got '%s'", headers["Path"])
	}
	if headers["X-RequestId"] != "abc" {
		t.Errorf("Expected trimmed X-RequestId 'abc', got '%s'", headers["X-RequestId"])
	}
	if string(body) != `{"x":1}` {
		t.Errorf("Unexpected body: %q", body)
	}

	// Headers without a body are still parsed
	headers, body = parseWireMessage([]byte("Path:turn.end"))
	if headers["Path"] != "turn.end" {
		t.Errorf("Expected Path 'turn.end', got '%s'", headers["Path"])
	}
	if len(body) != 0 {
		t.Errorf("Expected empty body, got %q", body)
	}
}

// binaryFrame assembles a service binary frame: a two byte big-endian
// header length, the headers, then the payload
func binaryFrame(path string, payload []byte) []byte {
	headers := []byte("X-RequestId:abc\r\nContent-Type:audio/mpeg\r\nPath:" + path + "\r\n")
	frame := binary.BigEndian.AppendUint16(nil, uint16(len(headers)))
	frame = append(frame, headers...)
	return append(frame, payload...)
}

func TestAudioPayload(t *testing.T) {
	t.Run("AudioFrame", func(t *testing.T) {
		payload, ok := audioPayload(binaryFrame("audio", []byte("MP3DATA")))
		if !ok {
			t.Fatal("Expected audio frame to be recognized")
		}
		if string(payload) != "MP3DATA" {
			t.Errorf("Expected payload 'MP3DATA', got %q", payload)
		}
	})

	t.Run("NonAudioFrame", func(t *testing.T) {
		if _, ok := audioPayload(binaryFrame("metadata", []byte("ignored"))); ok {
			t.Error("Expected non-audio frame to be rejected")
		}
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		payload, ok := audioPayload(binaryFrame("audio", nil))
		if !ok {
			t.Fatal("Expected audio frame to be recognized")
		}
		if len(payload) != 0 {
			t.Errorf("Expected empty payload, got %q", payload)
		}
	})

	t.Run("TooShort", func(t *testing.T) {
		if _, ok := audioPayload([]byte{0x01}); ok {
			t.Error("Expected one byte frame to be rejected")
		}
	})

	t.Run("TruncatedHeaders", func(t *testing.T) {
		frame := binary.BigEndian.AppendUint16(nil, 500)
		frame = append(frame, []byte("Path:audio")...)
		if _, ok := audioPayload(frame); ok {
			t.Error("Expected frame shorter than its header length to be rejected")
		}
	})
}

// edgeTestServer runs a websocket server that reads the two client
// messages of a synthesis turn and hands the ssml body to respond
func edgeTestServer(t *testing.T, respond func(conn *websocket.Conn, ssml string)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("TrustedClientToken") == "" {
			t.Error("Expected TrustedClientToken query parameter")
		}
		if r.URL.Query().Get("ConnectionId") == "" {
			t.Error("Expected ConnectionId query parameter")
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		var ssml string
		for i := 0; i < 2; i++ {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Errorf("Failed to read client message: %v", err)
				return
			}
			headers, body := parseWireMessage(data)
			switch i {
			case 0:
				if headers["Path"] != "speech.config" {
					t.Errorf("Expected first message Path 'speech.config', got '%s'", headers["Path"])
				}
			case 1:
				if headers["Path"] != "ssml" {
					t.Errorf("Expected second message Path 'ssml', got '%s'", headers["Path"])
				}
				ssml = string(body)
			}
		}

		respond(conn, ssml)
	}))
}

func TestEdgeSynthesize(t *testing.T) {
	server := edgeTestServer(t, func(conn *websocket.Conn, ssml string) {
		if !strings.Contains(ssml, "Hello &amp; goodbye") {
			t.Errorf("Expected escaped text in ssml, got %q", ssml)
		}
		conn.WriteMessage(websocket.TextMessage, []byte("Path:turn.start\r\n\r\n{}"))
		conn.WriteMessage(websocket.BinaryMessage, binaryFrame("audio", []byte("MP3A")))
		conn.WriteMessage(websocket.BinaryMessage, binaryFrame("audio", []byte("MP3B")))
		conn.WriteMessage(websocket.TextMessage, []byte("Path:turn.end\r\n\r\n{}"))
	})
	defer server.Close()

	engine := NewEdgeEngine(types.EdgeConfig{})
	engine.wsURL = "ws" + strings.TrimPrefix(server.URL, "http")

	resp, err := engine.Synthesize(context.Background(), Request{Text: "Hello & goodbye"})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if resp.Format != "mp3" {
		t.Errorf("Expected format 'mp3', got '%s'", resp.Format)
	}
	if string(resp.Audio) != "MP3AMP3B" {
		t.Errorf("Expected concatenated audio 'MP3AMP3B', got %q", resp.Audio)
	}
}

func TestEdgeSynthesizeNoAudio(t *testing.T) {
	server := edgeTestServer(t, func(conn *websocket.Conn, ssml string) {
		conn.WriteMessage(websocket.TextMessage, []byte("Path:turn.end\r\n\r\n{}"))
	})
	defer server.Close()

	engine := NewEdgeEngine(types.EdgeConfig{})
	engine.wsURL = "ws" + strings.TrimPrefix(server.URL, "http")

	if _, err := engine.Synthesize(context.Background(), Request{Text: "silence"}); err == nil {
		t.Error("Expected error when the turn ends without audio")
	}
}

func TestEdgeSynthesizeEmptyText(t *testing.T) {
	engine := NewEdgeEngine(types.EdgeConfig{})

	if _, err := engine.Synthesize(context.Background(), Request{Text: " \n "}); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestEdgeListVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("trustedclienttoken") == "" {
			t.Error("Expected trustedclienttoken query parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"Name":"Microsoft Server Speech Text to Speech Voice (en-US, BrianNeural)",
			 "ShortName":"en-US-BrianNeural","Gender":"Male","Locale":"en-US",
			 "FriendlyName":"Microsoft Brian Online (Natural) - English (United States)","Status":"GA"},
			{"Name":"Microsoft Server Speech Text to Speech Voice (fr-FR, VivienneNeural)",
			 "ShortName":"fr-FR-VivienneNeural","Gender":"Female","Locale":"fr-FR",
			 "FriendlyName":"Microsoft Vivienne Online (Natural) - French (France)","Status":"GA"}
		]`)
	}))
	defer server.Close()

	engine := NewEdgeEngine(types.EdgeConfig{})
	engine.voicesURL = server.URL

	voices, err := engine.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}

	if len(voices) != 2 {
		t.Fatalf("Expected 2 voices, got %d", len(voices))
	}
	if voices[0].ID != "en-US-BrianNeural" {
		t.Errorf("Expected ID 'en-US-BrianNeural', got '%s'", voices[0].ID)
	}
	if voices[0].Gender != "male" {
		t.Errorf("Expected gender 'male', got '%s'", voices[0].Gender)
	}
	if len(voices[1].Languages) != 1 || voices[1].Languages[0] != "fr-FR" {
		t.Errorf("Expected languages ['fr-FR'], got %v", voices[1].Languages)
	}
}

func TestEdgeListVoicesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	engine := NewEdgeEngine(types.EdgeConfig{})
	engine.voicesURL = server.URL

	if _, err := engine.ListVoices(context.Background()); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
