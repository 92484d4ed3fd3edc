package shared

import "testing"

func TestNormalize(t *testing.T) {
	t.Run("Lowercases", func(t *testing.T) {
		if got := Normalize("HELLO World"); got != "helloworld" {
			t.Errorf("expected helloworld, got %q", got)
		}
	})

	t.Run("FoldsDiacritics", func(t *testing.T) {
		if got := Normalize("Señorita"); got != "senorita" {
			t.Errorf("expected senorita, got %q", got)
		}
		if got := Normalize("Beyoncé"); got != "beyonce" {
			t.Errorf("expected beyonce, got %q", got)
		}
	})

	t.Run("StripsPunctuationAndWhitespace", func(t *testing.T) {
		if got := Normalize("Don't Stop Me Now!"); got != "dontstopmenow" {
			t.Errorf("expected dontstopmenow, got %q", got)
		}
		if got := Normalize("  Mr. Brightside  "); got != "mrbrightside" {
			t.Errorf("expected mrbrightside, got %q", got)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		inputs := []string{"Señorita", "Don't Stop Me Now!", "already normalized", ""}
		for _, s := range inputs {
			once := Normalize(s)
			if twice := Normalize(once); twice != once {
				t.Errorf("Normalize not idempotent for %q: %q != %q", s, once, twice)
			}
		}
	})

	t.Run("VariantsCollide", func(t *testing.T) {
		if Normalize("Señorita") != Normalize("senorita") {
			t.Error("expected accent variants to normalize equal")
		}
		if Normalize("Dont Stop") != Normalize("Don't Stop") {
			t.Error("expected apostrophe variants to normalize equal")
		}
	})
}

func TestNormalizeTrackKey(t *testing.T) {
	key := NormalizeTrackKey("Señorita", "Shawn Mendes")
	if key != "senorita|shawnmendes" {
		t.Errorf("unexpected key %q", key)
	}

	if NormalizeTrackKey("Hello", "") != "hello|" {
		t.Error("expected empty artist to keep separator")
	}
}

func TestSanitizeForPlatform(t *testing.T) {
	t.Run("StripsQuotesAndNonASCII", func(t *testing.T) {
		if got := SanitizeForPlatform(`My "Favorite" Songs`, 100); got != "My Favorite Songs" {
			t.Errorf("expected quotes stripped, got %q", got)
		}
		if got := SanitizeForPlatform("Café Playlist", 100); got != "Cafe Playlist" {
			t.Errorf("expected ASCII fold, got %q", got)
		}
	})

	t.Run("CapsLength", func(t *testing.T) {
		got := SanitizeForPlatform("abcdefghij", 5)
		if got != "abcde" {
			t.Errorf("expected abcde, got %q", got)
		}
	})

	t.Run("TrimsWhitespace", func(t *testing.T) {
		if got := SanitizeForPlatform("  title  ", 100); got != "title" {
			t.Errorf("expected trimmed title, got %q", got)
		}
	})
}
