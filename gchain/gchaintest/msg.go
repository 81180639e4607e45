// Package gchaintest contains test doubles for chain drivers:
// an in-process chain binary ([FakeChain]),
// a scripted driver that records its calls ([RecordingDriver]),
// and builders for the messages a FakeChain executes.
package gchaintest

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gordian-engine/gibctest/gchain"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Message kinds understood by FakeChain,
// carried in the "kind" field of the packed struct.
const (
	KindBankSend = "bank_send"
	KindTransfer = "transfer"
)

// BankSendMsg returns a message moving amount of denom from one wallet to another
// on the same chain.
func BankSendMsg(from, to gchain.WalletAddress, amount uint64, denom gchain.Denom) (*anypb.Any, error) {
	return packMsg(map[string]any{
		"kind":         KindBankSend,
		"from_address": string(from),
		"to_address":   string(to),
		"denom":        denom.String(),
		"amount":       strconv.FormatUint(amount, 10),
	})
}

// TransferMsg returns a message sending amount of denom from sender,
// over the channel end identified by sourcePort and sourceChannel,
// to receiver on the counterparty chain.
func TransferMsg(
	sourcePort gchain.PortID,
	sourceChannel gchain.ChannelID,
	sender, receiver gchain.WalletAddress,
	amount uint64,
	denom gchain.Denom,
) (*anypb.Any, error) {
	return packMsg(map[string]any{
		"kind":           KindTransfer,
		"source_port":    string(sourcePort),
		"source_channel": string(sourceChannel),
		"sender":         string(sender),
		"receiver":       string(receiver),
		"denom":          denom.String(),
		"amount":         strconv.FormatUint(amount, 10),
	})
}

func packMsg(fields map[string]any) (*anypb.Any, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build %v message: %w", fields["kind"], err)
	}
	a, err := anypb.New(s)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %v message: %w", fields["kind"], err)
	}
	return a, nil
}

// fakeMsg is the decoded form of a message built by this package.
type fakeMsg struct {
	Kind string

	From, To gchain.WalletAddress

	SourcePort    gchain.PortID
	SourceChannel gchain.ChannelID

	Denom  string
	Amount string
}

func unpackMsg(a *anypb.Any) (fakeMsg, error) {
	var s structpb.Struct
	if err := a.UnmarshalTo(&s); err != nil {
		return fakeMsg{}, fmt.Errorf("unsupported message type %q: %w", a.GetTypeUrl(), err)
	}

	f := func(name string) string {
		return s.GetFields()[name].GetStringValue()
	}

	m := fakeMsg{
		Kind:   f("kind"),
		Denom:  f("denom"),
		Amount: f("amount"),
	}
	switch m.Kind {
	case KindBankSend:
		m.From = gchain.WalletAddress(f("from_address"))
		m.To = gchain.WalletAddress(f("to_address"))
	case KindTransfer:
		m.From = gchain.WalletAddress(f("sender"))
		m.To = gchain.WalletAddress(f("receiver"))
		m.SourcePort = gchain.PortID(f("source_port"))
		m.SourceChannel = gchain.ChannelID(f("source_channel"))
	default:
		return fakeMsg{}, fmt.Errorf("unknown message kind %q", m.Kind)
	}

	if m.From == "" || m.To == "" || m.Denom == "" {
		return fakeMsg{}, errors.New("message is missing a required field")
	}

	return m, nil
}
