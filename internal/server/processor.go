// Package server routes every inbound payload through the Processor, the
// protocol state machine that validates payloads against registry state,
// mutates registry and history, and fans out the resulting events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Chat-text command prefixes.
const (
	clearCommand = "/clear"
	nickPrefix   = "/nick "
	gifPrefix    = "/gif "
)

const gifLookupTimeout = 10 * time.Second

// Processor classifies inbound payloads and applies the per-connection state
// machine: a connection is Unregistered until a register payload commits a
// username, Registered afterwards. Chat and typing payloads from Unregistered
// connections are dropped.
type Processor struct {
	hub      *Hub
	registry *Registry
	history  *History
	gifs     GifLookup
}

// NewProcessor wires the processor to the hub it broadcasts through, the
// registry and history it mutates, and the GIF lookup collaborator.
func NewProcessor(hub *Hub, registry *Registry, history *History, gifs GifLookup) *Processor {
	return &Processor{
		hub:      hub,
		registry: registry,
		history:  history,
		gifs:     gifs,
	}
}

// connected runs when a connection is accepted: track it, replay history to
// it, and push a fresh presence snapshot to everyone.
func (p *Processor) connected(c *Client) {
	p.registry.Add(c, c.addr)
	p.sendEvent(c, historyEvent{Type: eventHistory, Data: p.history.Snapshot()})
	p.broadcastPresence()
}

// disconnected runs when a connection closes: purge it from the registry,
// announce the departure if it had registered, and update presence. Safe to
// call more than once for the same client.
func (p *Processor) disconnected(c *Client) {
	s, ok := p.registry.Remove(c)
	if !ok {
		return
	}

	if s.Username != "" {
		p.broadcastEvent(systemEvent{Type: eventSystem, Text: fmt.Sprintf("%s left the chat", s.Username)})
		if s.Device != "" {
			log.Printf("%s %s disconnected from %s", s.Username, s.Device, s.RemoteAddr)
		}
	}
	p.broadcastPresence()

	if currentConfig().ClearHistoryOnEmpty && p.registry.Size() == 0 && p.history.Len() > 0 {
		p.history.Clear()
		log.Printf("All users disconnected; chat history cleared")
	}
}

// Handle processes one inbound payload from c. Malformed payloads and unknown
// type tags are dropped with a diagnostic; the connection stays open.
func (p *Processor) Handle(c *Client, raw []byte) {
	var in inboundPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		log.Printf("Invalid payload from %s: %v", c.addr, err)
		return
	}

	switch in.Type {
	case inboundRegister:
		p.handleRegister(c, in)
	case inboundTyping:
		p.handleTyping(c, in.IsTyping)
	case inboundStopTyping:
		p.handleTyping(c, false)
	case inboundChat:
		p.handleChat(c, in.Text)
	default:
		log.Printf("Unknown payload type %q from %s; dropping", in.Type, c.addr)
	}
}

func (p *Processor) handleRegister(c *Client, in inboundPayload) {
	name := strings.TrimSpace(in.Username)
	if name == "" {
		name = "Anonymous"
	}
	if in.UserAgent != "" {
		p.registry.SetDevice(c, guessDevice(in.UserAgent))
	}
	p.rename(c, name)

	if s, ok := p.registry.Get(c); ok && s.Username == name && s.Device != "" {
		log.Printf("%s registered from %s %s", s.Username, s.RemoteAddr, s.Device)
	}
}

// rename is the shared path behind the register payload and the inline /nick
// command: claim the name, announce joined or renamed, refresh presence.
func (p *Processor) rename(c *Client, name string) {
	prev, err := p.registry.SetUsername(c, name)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			p.sendEvent(c, systemEvent{Type: eventSystem, Text: fmt.Sprintf("Username %q is already taken.", name)})
			return
		}
		log.Printf("Cannot set username %q for %s: %v", name, c.addr, err)
		return
	}

	switch {
	case prev == "":
		p.broadcastEvent(systemEvent{Type: eventSystem, Text: fmt.Sprintf("%s joined the chat", name)})
	case prev != name:
		p.broadcastEvent(systemEvent{Type: eventSystem, Text: fmt.Sprintf("%s is now known as %s", prev, name)})
	}
	p.broadcastPresence()
}

func (p *Processor) handleTyping(c *Client, isTyping bool) {
	s, ok := p.registry.Get(c)
	if !ok || s.Username == "" {
		return
	}
	p.registry.SetTyping(c, isTyping)
	p.broadcastEvent(typingEvent{Type: eventTyping, Username: s.Username, IsTyping: isTyping})
}

func (p *Processor) handleChat(c *Client, text string) {
	s, ok := p.registry.Get(c)
	if !ok || s.Username == "" {
		// Chat from an unregistered connection is dropped silently.
		return
	}

	switch {
	case text == clearCommand:
		p.handleClear(c, s.Username)

	case strings.HasPrefix(text, nickPrefix):
		name := strings.TrimSpace(strings.TrimPrefix(text, nickPrefix))
		if name == "" {
			p.sendEvent(c, systemEvent{Type: eventSystem, Text: "Usage: /nick <name>"})
			return
		}
		p.rename(c, name)

	case strings.HasPrefix(text, gifPrefix):
		keyword := strings.TrimSpace(strings.TrimPrefix(text, gifPrefix))
		if keyword == "" {
			p.sendEvent(c, systemEvent{Type: eventSystem, Text: "Usage: /gif <keyword>"})
			return
		}
		// Lookups have real latency; run them off the read pump so neither
		// this connection nor any other stalls behind the collaborator.
		go p.lookupGif(c, s.Username, keyword)

	default:
		msg := ChatMessage{Username: s.Username, Text: text, Time: time.Now().UTC()}
		p.history.Append(msg)
		p.broadcastEvent(chatEvent{Type: eventChat, Data: msg})
		log.Printf("[chat] %s: %s", msg.Username, msg.Text)
	}
}

func (p *Processor) handleClear(c *Client, username string) {
	if username != currentConfig().AdminUsername {
		p.sendEvent(c, systemEvent{Type: eventSystem, Text: "You are not authorized to clear the chat."})
		return
	}

	p.history.Clear()
	p.broadcastEvent(clearEvent{Type: eventClear})
	p.sendEvent(c, systemEvent{Type: eventSystem, Text: "Chat history cleared."})
	log.Printf("Chat history cleared by admin %s", username)
}

// lookupGif resolves a /gif command on its own goroutine. Collaborator
// failure is indistinguishable from no result: the sender gets a unicast
// notice either way, and nothing is broadcast or buffered.
func (p *Processor) lookupGif(c *Client, username, keyword string) {
	ctx, cancel := context.WithTimeout(p.hub.ctx, gifLookupTimeout)
	defer cancel()

	url, err := p.gifs.Lookup(ctx, keyword)
	if err != nil {
		log.Printf("GIF lookup for %q failed: %v", keyword, err)
	}
	if err != nil || url == "" {
		p.sendEvent(c, systemEvent{Type: eventSystem, Text: fmt.Sprintf("No GIF found for %q", keyword)})
		return
	}

	msg := ChatMessage{Username: username, Text: url, Time: time.Now().UTC(), IsGif: true, GifURL: url}
	p.history.Append(msg)
	p.broadcastEvent(chatEvent{Type: eventChat, Data: msg})
}

// broadcastPresence pushes the current roster to every connection.
func (p *Processor) broadcastPresence() {
	users := p.registry.Usernames()
	p.broadcastEvent(onlineEvent{Type: eventOnline, Count: len(users), Users: users})
}

// broadcastEvent serializes an event once and hands it to the hub for fan-out.
func (p *Processor) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error encoding broadcast event: %v", err)
		return
	}
	p.hub.Broadcast(payload)
}

// sendEvent serializes an event and unicasts it to one connection.
func (p *Processor) sendEvent(c *Client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error encoding unicast event: %v", err)
		return
	}
	p.hub.SendTo(c, payload)
}
