package models

import "testing"

func TestParsers(t *testing.T) {
	t.Run("ParseProfile", func(t *testing.T) {
		payload := `{
			"id": "user123",
			"display_name": "Test User",
			"email": "test@example.com",
			"country": "US",
			"product": "premium",
			"images": [{"url": "http://img.test/avatar.png", "height": 64, "width": 64}]
		}`

		profile, err := ParseProfile([]byte(payload))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if profile.DisplayName != "Test User" {
			t.Errorf("expected display name 'Test User', got %s", profile.DisplayName)
		}
		if profile.Product != "premium" {
			t.Errorf("expected product 'premium', got %s", profile.Product)
		}
		if profile.ImageURL != "http://img.test/avatar.png" {
			t.Errorf("expected first image url, got %s", profile.ImageURL)
		}
	})

	t.Run("ParseSearchArtists", func(t *testing.T) {
		payload := `{
			"artists": {
				"items": [
					{"id": "a1", "name": "First Artist", "uri": "spotify:artist:a1",
					 "genres": ["rock"], "images": [{"url": "http://img.test/a1.png"}]},
					{"id": "a2", "name": "Second Artist", "uri": "spotify:artist:a2", "images": []}
				]
			}
		}`

		artists, err := ParseSearchArtists([]byte(payload))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(artists) != 2 {
			t.Fatalf("expected 2 artists, got %d", len(artists))
		}
		if artists[0].Name != "First Artist" {
			t.Errorf("expected 'First Artist', got %s", artists[0].Name)
		}
		if artists[0].ImageURL != "http://img.test/a1.png" {
			t.Errorf("expected first image, got %s", artists[0].ImageURL)
		}
		if artists[1].ImageURL != "" {
			t.Errorf("expected no image for second artist, got %s", artists[1].ImageURL)
		}

		t.Run("Empty Results", func(t *testing.T) {
			artists, err := ParseSearchArtists([]byte(`{"artists":{"items":[]}}`))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(artists) != 0 {
				t.Errorf("expected no artists, got %d", len(artists))
			}
		})
	})

	t.Run("ParseSearchAlbums", func(t *testing.T) {
		payload := `{
			"albums": {
				"items": [
					{"id": "al1", "name": "Test Album", "uri": "spotify:album:al1",
					 "release_date": "2001-05-15", "total_tracks": 12,
					 "artists": [{"name": "First Artist"}, {"name": "Second Artist"}],
					 "images": [{"url": "http://img.test/al1.png"}]}
				]
			}
		}`

		albums, err := ParseSearchAlbums([]byte(payload))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(albums) != 1 {
			t.Fatalf("expected 1 album, got %d", len(albums))
		}
		album := albums[0]
		if album.ReleaseDate != "2001-05-15" {
			t.Errorf("expected release date, got %s", album.ReleaseDate)
		}
		if album.TotalTracks != 12 {
			t.Errorf("expected 12 tracks, got %d", album.TotalTracks)
		}
		if len(album.Artists) != 2 || album.Artists[0] != "First Artist" {
			t.Errorf("unexpected artists %v", album.Artists)
		}
	})

	t.Run("ParseSearchTracks", func(t *testing.T) {
		payload := `{
			"tracks": {
				"items": [
					{"id": "t1", "name": "Test Track", "uri": "spotify:track:t1",
					 "duration_ms": 180000,
					 "artists": [{"name": "First Artist"}],
					 "album": {"name": "Test Album", "images": [{"url": "http://img.test/t1.png"}]}}
				]
			}
		}`

		tracks, err := ParseSearchTracks([]byte(payload))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}
		track := tracks[0]
		if track.DurationMS != 180000 {
			t.Errorf("expected 180000ms, got %d", track.DurationMS)
		}
		if track.AlbumName != "Test Album" {
			t.Errorf("expected album name, got %s", track.AlbumName)
		}
		if track.ImageURL != "http://img.test/t1.png" {
			t.Errorf("expected album art, got %s", track.ImageURL)
		}
	})

	t.Run("ParseTrack", func(t *testing.T) {
		t.Run("URI Fallback From ID", func(t *testing.T) {
			track, err := ParseTrack([]byte(`{"id": "t42", "name": "No URI Track"}`))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.URI != "spotify:track:t42" {
				t.Errorf("expected synthesized URI, got %s", track.URI)
			}
		})

		t.Run("Explicit URI Wins", func(t *testing.T) {
			track, err := ParseTrack([]byte(`{"id": "t42", "uri": "spotify:track:other"}`))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.URI != "spotify:track:other" {
				t.Errorf("expected wire URI, got %s", track.URI)
			}
		})
	})

	t.Run("ParseTrackList", func(t *testing.T) {
		payload := `{"items": [
			{"id": "t1", "name": "One", "duration_ms": 1000},
			{"id": "t2", "name": "Two", "duration_ms": 2000}
		]}`

		tracks, err := ParseTrackList([]byte(payload))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[1].Name != "Two" {
			t.Errorf("expected 'Two', got %s", tracks[1].Name)
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		if _, err := ParseProfile([]byte("not json")); err == nil {
			t.Error("expected error for invalid profile payload")
		}
		if _, err := ParseSearchArtists([]byte("not json")); err == nil {
			t.Error("expected error for invalid search payload")
		}
	})
}

func TestTrackSubtitle(t *testing.T) {
	track := Track{Artists: []string{"First Artist", "Second Artist"}}
	if track.Subtitle() != "First Artist, Second Artist" {
		t.Errorf("expected joined names, got %s", track.Subtitle())
	}

	empty := Track{}
	if empty.Subtitle() != "" {
		t.Errorf("expected empty subtitle, got %s", empty.Subtitle())
	}
}
