// Package notify fans workflow events out to the party who did not trigger
// them. Delivery is best effort: failures are logged and never surfaced to
// the operation that raised the event.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/atelierhq/commission-platform/internal/directory"
	"github.com/atelierhq/commission-platform/internal/revision"
	"github.com/atelierhq/commission-platform/internal/store/rabbitmq"
)

// Transport pushes one rendered notification toward a channel. The rabbitmq
// queue is the production transport; tests plug in fakes.
type Transport interface {
	Send(ctx context.Context, channelID, text string, attachmentRefs []string) error
}

type Router struct {
	actors      directory.Actors
	transport   Transport
	teamChannel string
}

func NewRouter(actors directory.Actors, transport Transport, teamChannel string) *Router {
	return &Router{actors: actors, transport: transport, teamChannel: teamChannel}
}

func (r *Router) RevisionCreated(ctx context.Context, proj *directory.Project, rev *revision.Revision, actorID uint64) {
	text := fmt.Sprintf("New revision #%d for %q: %s [%s]",
		rev.Number, proj.Title, rev.Title, rev.Priority)
	r.send(ctx, "created", proj, rev, actorID, text, nil)
}

func (r *Router) StatusChanged(ctx context.Context, proj *directory.Project, rev *revision.Revision, from, to revision.Status, actorID uint64, comment string) {
	text := fmt.Sprintf("Revision #%d (%s): status %s -> %s", rev.Number, proj.Title, from, to)
	if comment != "" {
		text += "\n" + comment
	}
	r.send(ctx, "status_changed", proj, rev, actorID, text, nil)
}

func (r *Router) NewMessage(ctx context.Context, proj *directory.Project, rev *revision.Revision, msg *revision.Message, atts []revision.Attachment, actorID uint64) {
	text := fmt.Sprintf("Revision #%d (%s): new message\n%s", rev.Number, proj.Title, msg.Body)
	var refs []string
	for _, a := range atts {
		refs = append(refs, fmt.Sprintf("%s (%s, %d bytes)", a.OriginalName, a.Kind, a.SizeBytes))
	}
	r.send(ctx, "new_message", proj, rev, actorID, text, refs)
}

// send resolves the counterparty channel and pushes. Any failure along the
// way ends here.
func (r *Router) send(ctx context.Context, event string, proj *directory.Project, rev *revision.Revision, actorID uint64, text string, refs []string) {
	channel, err := r.counterpartyChannel(ctx, proj, rev, actorID)
	if err != nil {
		log.Printf("[notify] resolve counterparty failed event=%s revision=%s actor=%d err=%v",
			event, rev.RevisionID, actorID, err)
		return
	}
	if err := r.transport.Send(ctx, channel, text, refs); err != nil {
		log.Printf("[notify] send failed event=%s revision=%s channel=%s err=%v",
			event, rev.RevisionID, channel, err)
	}
}

func (r *Router) counterpartyChannel(ctx context.Context, proj *directory.Project, rev *revision.Revision, actorID uint64) (string, error) {
	var counterparty uint64
	switch {
	case actorID == proj.OwnerActorID:
		// client acted: route to the executor, or the team inbox when
		// nobody is assigned yet
		if rev.AssignedTo != nil {
			counterparty = *rev.AssignedTo
		} else if proj.AssignedExecutorID != nil {
			counterparty = *proj.AssignedExecutorID
		} else {
			return r.teamChannel, nil
		}
	default:
		counterparty = proj.OwnerActorID
	}

	actor, err := r.actors.Resolve(ctx, counterparty)
	if err != nil {
		return "", err
	}
	return actor.NotificationChannel, nil
}

// QueueTransport adapts the rabbitmq publisher to the Transport interface.
type QueueTransport struct {
	Publisher *rabbitmq.Publisher
}

func (t *QueueTransport) Send(ctx context.Context, channelID, text string, attachmentRefs []string) error {
	return t.Publisher.Publish(ctx, rabbitmq.Notification{
		ChannelID:      channelID,
		Text:           text,
		AttachmentRefs: attachmentRefs,
	})
}
