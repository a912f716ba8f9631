package aws

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultSecretTTL bounds how long a rotated credential can stay stale.
const DefaultSecretTTL = 15 * time.Minute

type secretsAPI interface {
	BatchGetSecretValue(ctx context.Context, params *secretsmanager.BatchGetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.BatchGetSecretValueOutput, error)
}

type cachedSecret struct {
	value     string
	fetchedAt time.Time
}

// SecretsClient reads the storefront credentials from Secrets Manager and
// caches each value for ttl.
type SecretsClient struct {
	client secretsAPI
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return newSecretsClient(secretsmanager.NewFromConfig(cfg), DefaultSecretTTL)
}

func newSecretsClient(api secretsAPI, ttl time.Duration) *SecretsClient {
	return &SecretsClient{
		client: api,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedSecret),
	}
}

func (s *SecretsClient) cached(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[name]
	if !ok || s.now().Sub(c.fetchedAt) >= s.ttl {
		return "", false
	}
	return c.value, true
}

func (s *SecretsClient) store(name, value string) {
	s.mu.Lock()
	s.cache[name] = cachedSecret{value: value, fetchedAt: s.now()}
	s.mu.Unlock()
}

// GetSecrets fetches every uncached name in one batch call. Names that do not
// exist, or hold binary values, are absent from the result.
func (s *SecretsClient) GetSecrets(ctx context.Context, names []string) (map[string]string, error) {
	found := make(map[string]string, len(names))
	var pending []string
	for _, n := range names {
		if v, ok := s.cached(n); ok {
			found[n] = v
			continue
		}
		pending = append(pending, n)
	}
	if len(pending) == 0 {
		return found, nil
	}

	out, err := s.client.BatchGetSecretValue(ctx, &secretsmanager.BatchGetSecretValueInput{SecretIdList: pending})
	if err != nil {
		return found, fmt.Errorf("failed to batch get %d secrets: %w", len(pending), err)
	}
	for _, entry := range out.SecretValues {
		if entry.Name == nil || entry.SecretString == nil {
			continue
		}
		s.store(*entry.Name, *entry.SecretString)
		found[*entry.Name] = *entry.SecretString
	}
	return found, nil
}
