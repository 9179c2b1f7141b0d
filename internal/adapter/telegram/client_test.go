package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "TOKEN", 30*time.Second)
}

func Test_Reply_SendsMessage(t *testing.T) {
	var gotPath, gotChat, gotText string
	c := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChat = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	})

	require.NoError(t, c.Reply(context.Background(), 42, "привет"))
	require.Equal(t, "/botTOKEN/sendMessage", gotPath)
	require.Equal(t, "42", gotChat)
	require.Equal(t, "привет", gotText)
}

func Test_Reply_TruncatesOversizedText(t *testing.T) {
	var gotText string
	c := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotText = r.FormValue("text")
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	})

	require.NoError(t, c.Reply(context.Background(), 42, strings.Repeat("ы", 5000)))
	require.Equal(t, maxSendLen, utf8.RuneCountInString(gotText))
}

func Test_Reply_APIError(t *testing.T) {
	c := newTestAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	})

	err := c.Reply(context.Background(), 42, "привет")
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat not found")
}

func Test_Download_ResolvesPathAndFetches(t *testing.T) {
	payload := []byte("voice bytes")
	c := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/botTOKEN/getFile":
			require.NoError(t, r.ParseForm())
			require.Equal(t, "file-9", r.FormValue("file_id"))
			fmt.Fprint(w, `{"ok":true,"result":{"file_id":"file-9","file_path":"voice/file_9.oga"}}`)
		case r.URL.Path == "/file/botTOKEN/voice/file_9.oga":
			_, _ = w.Write(payload)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	data, err := c.Download(context.Background(), "file-9")
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

func Test_GetUpdates_ParsesMessages(t *testing.T) {
	c := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "100", r.FormValue("offset"))
		fmt.Fprint(w, `{"ok":true,"result":[
			{"update_id":100,"message":{"message_id":1,"from":{"id":7},"chat":{"id":7},"text":"привет"}},
			{"update_id":101,"message":{"message_id":2,"from":{"id":7},"chat":{"id":7},
				"voice":{"file_id":"f1","duration":12}}}
		]}`)
	})

	updates, err := c.getUpdates(context.Background(), 100, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	require.Equal(t, "привет", updates[0].Message.Text)
	require.NotNil(t, updates[1].Message.Voice)
	require.Equal(t, 12, updates[1].Message.Voice.Duration)
}
