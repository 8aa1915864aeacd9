package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func rapidSource(name string) domain.Source {
	return domain.Source{
		Name: name,
		URL:  "https://" + name + ".example.com/list",
		Headers: map[string]string{
			"X-RapidAPI-Key":  "${RAPIDAPI_KEY}",
			"X-RapidAPI-Host": name + ".example.com",
		},
		Params: map[string]string{"city": "Los Angeles"},
	}
}

func TestNew_ResolvesCredentials(t *testing.T) {
	r := New([]domain.Source{rapidSource("zillow")}, mapLookup(map[string]string{"RAPIDAPI_KEY": "secret"}))

	src, ok := r.Lookup("zillow")
	require.True(t, ok)
	assert.Equal(t, "secret", src.Headers["X-RapidAPI-Key"])
	assert.Equal(t, "zillow.example.com", src.Headers["X-RapidAPI-Host"])
	assert.Equal(t, "Los Angeles", src.Params["city"])
	assert.NoError(t, r.Problem("zillow"))
}

func TestNew_MissingCredentialIsRecordedNotFatal(t *testing.T) {
	r := New([]domain.Source{rapidSource("zillow"), rapidSource("redfin")}, mapLookup(nil))

	assert.Len(t, r.Sources(), 2, "misconfigured sources stay registered")

	err := r.Problem("zillow")
	require.Error(t, err)
	assert.True(t, coreerrors.IsConfiguration(err))

	var cfgErr *coreerrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "RAPIDAPI_KEY", cfgErr.Key)
	assert.Len(t, r.Problems(), 2)
}

func TestNew_TemplateCredentialCountsAsMissing(t *testing.T) {
	r := New([]domain.Source{rapidSource("zillow")}, mapLookup(map[string]string{"RAPIDAPI_KEY": "your_rapidapi_key_here"}))

	assert.Error(t, r.Problem("zillow"))
}

func TestNew_InvalidURL(t *testing.T) {
	r := New([]domain.Source{{Name: "broken", URL: "not a url"}}, mapLookup(nil))

	assert.True(t, coreerrors.IsConfiguration(r.Problem("broken")))
}

func TestRegistry_SourcesAreOrderedCopies(t *testing.T) {
	r := New([]domain.Source{rapidSource("zillow"), rapidSource("alpha")}, mapLookup(map[string]string{"RAPIDAPI_KEY": "k"}))

	assert.Equal(t, []string{"alpha", "zillow"}, r.Names())

	sources := r.Sources()
	sources[0].Name = "mutated"
	assert.Equal(t, "alpha", r.Sources()[0].Name)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := New(nil, nil)

	_, ok := r.Lookup("nope")
	assert.False(t, ok)
	assert.NoError(t, r.Problem("nope"))
}
