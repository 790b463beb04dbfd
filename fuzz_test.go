package toon_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toonfmt/go-toon"
)

func FuzzRoundTrip(f *testing.F) {
	// Seed the corpus with valid TOON files from the testdata directory.
	// This gives the fuzzer good starting points for valid syntax.
	seedFiles, err := filepath.Glob("testdata/*.toon")
	if err != nil {
		f.Fatalf("failed to find seed files: %v", err)
	}

	for _, file := range seedFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			f.Fatalf("failed to read seed file %s: %v", file, err)
		}
		f.Add(data)
	}

	// Add some simple but important edge cases manually.
	f.Add([]byte("null"))
	f.Add([]byte(`"a simple string"`))
	f.Add([]byte("12345"))
	f.Add([]byte("true"))
	f.Add([]byte("key: value"))
	f.Add([]byte("tags[2]: a,b"))
	f.Add([]byte("rows[1]{a,b}:\n  1,2"))
	f.Add([]byte("list[1]:\n  - x: 1"))

	f.Fuzz(func(t *testing.T, originalData []byte) {
		// 1. Try to unmarshal the fuzzed data into a generic interface.
		var v1 any
		err := toon.Unmarshal(originalData, &v1)
		if err != nil {
			// If there's an error, the input was invalid TOON, which is
			// expected. The fuzzer's main job is to find inputs that
			// cause a panic, and the fuzz engine detects those itself.
			return
		}

		// 2. If unmarshaling succeeded, marshal it back to bytes.
		// This step should *never* fail or panic for a value our own
		// unmarshaler just successfully created.
		marshaledData, err := toon.Marshal(v1)
		require.NoError(t, err, "Marshal failed for a successfully unmarshaled value")

		// 3. Unmarshal the marshaled data again into a new variable.
		// This must also succeed without error or panic.
		var v2 any
		err = toon.Unmarshal(marshaledData, &v2)
		require.NoError(t, err, "Unmarshal failed on our own marshaled output")

		// 4. Compare the results. The codec must be symmetric: what goes
		// in comes out.
		require.Equal(t, v1, v2, "Value is not the same after a marshal/unmarshal round trip")
	})
}
