// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in chat page.
package server

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns the handler for WebSocket upgrade requests. It
// validates the method, upgrades the connection, and hands the new client to
// the hub, which replays history and starts the pump goroutines.
func WebSocketHandler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		h.Register(NewClient(conn, h, clientIP(r)))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Ripple relay is running!")
}

// clientIP extracts the remote address, preferring proxy-forwarded headers
// and stripping the IPv4-mapped IPv6 prefix.
func clientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		forwarded = r.Header.Get("X-Real-Ip")
	}
	if forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimPrefix(strings.TrimSpace(first), "::ffff:")
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return strings.TrimPrefix(host, "::ffff:")
}

// guessDevice classifies a user agent into a coarse device emoji, matching
// what the chat page renders next to usernames.
func guessDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return "🖥️"
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		return "📱"
	case strings.Contains(ua, "bot"), strings.Contains(ua, "crawler"), strings.Contains(ua, "spider"):
		return "🤖"
	default:
		return "🖥️"
	}
}

// ChatPageHandler serves the built-in HTML chat page. It is mounted at the
// root when no static directory is configured, mainly for local testing.
func ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Ripple Chat</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        #online { color: #555; margin: 5px 0; }
        #typing { color: #999; font-style: italic; min-height: 1em; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .system { color: gray; font-style: italic; }
        .chat { color: #222; }
    </style>
</head>
<body>
    <h1>Ripple Chat</h1>
    <div id="online">0 online</div>
    <div>
        <input type="text" id="nameInput" placeholder="Pick a username...">
        <button onclick="register()">Join</button>
    </div>
    <div id="messages"></div>
    <div id="typing"></div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <script>
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const ws = new WebSocket('ws://' + location.host + '/ws');
        let typingTimer = null;

        function addLine(text, cls) {
            const el = document.createElement('div');
            el.className = cls;
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function renderChat(msg) {
            if (msg.isGif) {
                const el = document.createElement('div');
                el.className = 'chat';
                el.textContent = msg.username + ': ';
                const img = document.createElement('img');
                img.src = msg.gifUrl || msg.text;
                img.style.maxHeight = '120px';
                el.appendChild(img);
                messagesDiv.appendChild(el);
                messagesDiv.scrollTop = messagesDiv.scrollHeight;
                return;
            }
            addLine(msg.username + ': ' + msg.text, 'chat');
        }

        ws.onmessage = function(event) {
            const msg = JSON.parse(event.data);
            switch (msg.type) {
                case 'history':
                    (msg.data || []).forEach(renderChat);
                    break;
                case 'chat':
                    renderChat(msg.data);
                    break;
                case 'system':
                    addLine(msg.text, 'system');
                    break;
                case 'online':
                    document.getElementById('online').textContent =
                        msg.count + ' online' + (msg.users && msg.users.length ? ': ' + msg.users.join(', ') : '');
                    break;
                case 'typing':
                    document.getElementById('typing').textContent =
                        msg.isTyping ? msg.username + ' is typing...' : '';
                    break;
                case 'clear':
                    messagesDiv.innerHTML = '';
                    break;
            }
        };

        function register() {
            const name = document.getElementById('nameInput').value.trim();
            if (!name) return;
            ws.send(JSON.stringify({type: 'register', username: name, userAgent: navigator.userAgent}));
            messageInput.disabled = false;
            sendButton.disabled = false;
            messageInput.focus();
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (!text) return;
            ws.send(JSON.stringify({type: 'chat', text: text}));
            messageInput.value = '';
            ws.send(JSON.stringify({type: 'typing', isTyping: false}));
        }

        messageInput.addEventListener('input', function() {
            ws.send(JSON.stringify({type: 'typing', isTyping: true}));
            clearTimeout(typingTimer);
            typingTimer = setTimeout(function() {
                ws.send(JSON.stringify({type: 'typing', isTyping: false}));
            }, 1500);
        });

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') sendMessage();
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		log.Printf("Error writing HTML response: %v", err)
	}
}
