package classifierfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-message-triage/classifier"
)

var _ classifier.Client = (*FakeClient)(nil)

// FakeClient returns a scripted verdict or error and records what it was
// asked to classify.
type FakeClient struct {
	Verdict *classifier.Verdict
	Err     error

	lock      sync.Mutex
	filePaths []string
	texts     []string
}

func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (c *FakeClient) ClassifyFile(_ context.Context, path string) (*classifier.Verdict, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.filePaths = append(c.filePaths, path)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Verdict, nil
}

func (c *FakeClient) ClassifyText(_ context.Context, text string) (*classifier.Verdict, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.texts = append(c.texts, text)
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Verdict, nil
}

// FileCalls returns the file paths passed to ClassifyFile.
func (c *FakeClient) FileCalls() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]string(nil), c.filePaths...)
}

// TextCalls returns the bodies passed to ClassifyText.
func (c *FakeClient) TextCalls() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]string(nil), c.texts...)
}
