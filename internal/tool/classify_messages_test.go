package tool_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/intent-mcp/internal/classify"
	"github.com/hal9000y/intent-mcp/internal/preprocess"
	"github.com/hal9000y/intent-mcp/internal/tool"
)

func TestClassifyMessages(t *testing.T) {
	base := mustClassification(t, classificationOutput)

	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, raw string, usePreprocessing bool) (classify.Result, error) {
			if strings.HasPrefix(raw, "Subject: Closing") {
				return classify.Result{}, errors.New("model unavailable")
			}
			res := classify.Result{Classification: base}
			if usePreprocessing {
				pre := preprocess.Preprocess(raw)
				res.Preprocessing = &pre
			}
			return res, nil
		},
	}

	converter := &converterMock{
		HTML2TextFunc: func(_ []byte) (string, error) {
			return closingText, nil
		},
	}

	server := tool.NewServer(discardLogger(), preprocess.Default(), cls, tool.WithGmail(newGetMessagesGmailSvc(), converter))
	session := connect(t, server)

	var response tool.ClassifyMessagesResponse
	errText := callTool(t, session, "classify_messages", tool.ClassifyMessagesRequest{
		MessageIDs: []string{"plain-msg", "html-msg"},
	}, &response)
	require.Empty(t, errText)
	require.Len(t, response.Results, 2)

	plainEmail := "Subject: Lease review\n\n" + leasePlainBody
	plainPre := preprocess.Preprocess(plainEmail)
	withAttachments := base
	withAttachments.AttachmentsMentioned = true

	assert.Equal(t, tool.MessageClassification{
		Summary: summaryFor("plain-msg", "Lease review"),
		Attachments: []tool.Attachment{
			{Filename: "lease.pdf", MimeType: "application/pdf", Size: 2048},
		},
		Classification: &withAttachments,
		Preprocessing:  &plainPre,
	}, response.Results[0])

	assert.Equal(t, tool.MessageClassification{
		Summary: summaryFor("html-msg", "Closing"),
		Error:   "model unavailable",
	}, response.Results[1])

	assert.Equal(t, []classifyCall{
		{Raw: plainEmail, UsePreprocessing: true},
		{Raw: "Subject: Closing\n\n" + closingText, UsePreprocessing: true},
	}, cls.ClassifyCalls())
}

func TestClassifyMessagesSkipPreprocessing(t *testing.T) {
	base := mustClassification(t, classificationOutput)

	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, _ string, _ bool) (classify.Result, error) {
			return classify.Result{Classification: base}, nil
		},
	}

	server := tool.NewServer(discardLogger(), preprocess.Default(), cls, tool.WithGmail(newGetMessagesGmailSvc(), &converterMock{}))
	session := connect(t, server)

	var response tool.ClassifyMessagesResponse
	errText := callTool(t, session, "classify_messages", tool.ClassifyMessagesRequest{
		MessageIDs:        []string{"plain-msg"},
		SkipPreprocessing: true,
	}, &response)
	require.Empty(t, errText)
	require.Len(t, response.Results, 1)

	result := response.Results[0]
	require.NotNil(t, result.Classification)
	assert.True(t, result.Classification.AttachmentsMentioned)
	assert.Nil(t, result.Preprocessing)
	assert.Empty(t, result.Error)

	calls := cls.ClassifyCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].UsePreprocessing)
}

func TestClassifyMessagesFetchError(t *testing.T) {
	cls := &classifierMock{
		ClassifyFunc: func(_ context.Context, _ string, _ bool) (classify.Result, error) {
			return classify.Result{Classification: mustClassification(t, classificationOutput)}, nil
		},
	}

	server := tool.NewServer(discardLogger(), preprocess.Default(), cls, tool.WithGmail(newGetMessagesGmailSvc(), &converterMock{}))
	session := connect(t, server)

	errText := callTool(t, session, "classify_messages", tool.ClassifyMessagesRequest{
		MessageIDs: []string{"plain-msg", "missing-msg"},
	}, nil)
	assert.Contains(t, errText, "message not found: missing-msg")
}
