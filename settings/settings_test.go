// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testYamlSettings = `
exec_numMotes: 5
exec_numSlotframesPerRun: 20
tsch_slotframeLength: 11
conn_class: FullyMeshed
fragmentation: FragmentForwarding
frag_ff_discard_vrb_entry_policy: [last_fragment, missing_fragment]
topology:
    - id: 1
      pos: [10, 20]
`

func TestDefaultIsValid(t *testing.T) {
	assert.Nil(t, Default().Validate())
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(testYamlSettings))
	require.Nil(t, err)
	assert.Equal(t, 5, s.NumMotes)
	assert.Equal(t, 20, s.NumSlotframesPerRun)
	assert.Equal(t, 11, s.SlotframeLength)
	assert.Equal(t, ConnFullyMeshed, s.ConnClass)
	assert.True(t, s.HasVrbPolicy(VrbPolicyLastFragment))
	assert.True(t, s.HasVrbPolicy(VrbPolicyMissingFragment))
	assert.Equal(t, [2]float64{10, 20}, s.Topology[0].Pos)

	// defaults survive for keys not present
	assert.Equal(t, 0.010, s.SlotDuration)
	assert.Equal(t, 10, s.TxQueueSize)
	assert.Nil(t, s.Validate())
}

func TestParseRejectsUnknownKey(t *testing.T) {
	_, err := Parse([]byte("exec_numMotez: 3\n"))
	assert.NotNil(t, err)
	assert.True(t, IsConfigError(err))
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse([]byte(""))
	require.Nil(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "settings.yaml")
	require.Nil(t, os.WriteFile(fn, []byte(testYamlSettings), 0644))
	s, err := Load(fn)
	require.Nil(t, err)
	assert.Equal(t, 5, s.NumMotes)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := Default()
	s.NumMotes = 0
	s.ConnClass = "Hexagonal"
	s.Fragmentation = "Magic"
	s.FragFfDiscardVrbEntryPolicy = []string{"first_fragment"}

	err := s.Validate()
	require.NotNil(t, err)
	assert.True(t, IsConfigError(err))

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	fields := map[string]bool{}
	for _, e := range merr.Errors {
		fe, ok := e.(*FieldError)
		require.True(t, ok)
		fields[fe.Field] = true
	}
	assert.True(t, fields["exec_numMotes"])
	assert.True(t, fields["conn_class"])
	assert.True(t, fields["fragmentation"])
	assert.True(t, fields["frag_ff_discard_vrb_entry_policy"])
	assert.Len(t, merr.Errors, 4)
}

func TestValidateK7NeedsTrace(t *testing.T) {
	s := Default()
	s.ConnClass = ConnK7
	err := s.Validate()
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "conn_trace")
}

func TestDatagramLength(t *testing.T) {
	s := Default()
	assert.Equal(t, 90, s.AppDatagramLength())
	s.FragNumFragments = 2
	assert.Equal(t, 180, s.AppDatagramLength())

	s.FragNumFragments = 100
	err := s.Validate()
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "frag_max_datagram_size")
}

func TestTimeConversions(t *testing.T) {
	s := Default()
	assert.Equal(t, uint64(200), s.SecondsToSlots(2))
	assert.Equal(t, uint64(6000), s.SecondsToSlots(60))
	assert.Equal(t, uint64(0), s.SecondsToSlots(-1))
	s.NumSlotframesPerRun = 11
	assert.Equal(t, uint64(1111), s.HorizonSlots())
	assert.InDelta(t, 11.11, s.DurationSeconds(), 1e-9)
}

func TestCloneIsDeep(t *testing.T) {
	s := Default()
	s.FragFfDiscardVrbEntryPolicy = []string{VrbPolicyLastFragment}
	c := s.Clone()
	c.FragFfDiscardVrbEntryPolicy[0] = VrbPolicyMissingFragment
	assert.Equal(t, VrbPolicyLastFragment, s.FragFfDiscardVrbEntryPolicy[0])
}

func TestMarshalRoundTrip(t *testing.T) {
	s := Default()
	s.NumMotes = 7
	data, err := s.Marshal()
	require.Nil(t, err)
	s2, err := Parse(data)
	require.Nil(t, err)
	assert.Equal(t, 7, s2.NumMotes)
}
