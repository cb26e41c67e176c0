package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Profile is the display shape of the authenticated user.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	Country     string
	Product     string // premium, free, etc.
	ImageURL    string
}

// Artist is the display shape of a provider artist.
type Artist struct {
	ID       string
	Name     string
	URI      string
	ImageURL string
	Genres   []string
}

// Album is the display shape of a provider album.
type Album struct {
	ID          string
	Name        string
	URI         string
	ImageURL    string
	ReleaseDate string
	Artists     []string
	TotalTracks int
}

// Track is the display shape of a provider track.
type Track struct {
	ID         string
	Name       string
	URI        string
	ImageURL   string
	Artists    []string
	AlbumName  string
	DurationMS int
}

// Subtitle joins the track's artist names for the mini-player's second line.
func (t Track) Subtitle() string {
	return strings.Join(t.Artists, ", ")
}

// provider wire shapes, based on https://developer.spotify.com/documentation/web-api/reference/

type wireImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type wireArtist struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	URI    string      `json:"uri"`
	Genres []string    `json:"genres"`
	Images []wireImage `json:"images"`
}

type wireAlbum struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	URI         string       `json:"uri"`
	ReleaseDate string       `json:"release_date"`
	TotalTracks int          `json:"total_tracks"`
	Artists     []wireArtist `json:"artists"`
	Images      []wireImage  `json:"images"`
}

type wireTrack struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	URI        string       `json:"uri"`
	DurationMS int          `json:"duration_ms"`
	Artists    []wireArtist `json:"artists"`
	Album      wireAlbum    `json:"album"`
}

type wireProfile struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	Country     string      `json:"country"`
	Product     string      `json:"product"`
	Images      []wireImage `json:"images"`
}

func firstImage(images []wireImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func artistNames(artists []wireArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

func mapArtist(w wireArtist) Artist {
	return Artist{
		ID:       w.ID,
		Name:     w.Name,
		URI:      w.URI,
		ImageURL: firstImage(w.Images),
		Genres:   w.Genres,
	}
}

func mapAlbum(w wireAlbum) Album {
	return Album{
		ID:          w.ID,
		Name:        w.Name,
		URI:         w.URI,
		ImageURL:    firstImage(w.Images),
		ReleaseDate: w.ReleaseDate,
		Artists:     artistNames(w.Artists),
		TotalTracks: w.TotalTracks,
	}
}

func mapTrack(w wireTrack) Track {
	uri := w.URI
	if uri == "" && w.ID != "" {
		uri = "spotify:track:" + w.ID
	}
	return Track{
		ID:         w.ID,
		Name:       w.Name,
		URI:        uri,
		ImageURL:   firstImage(w.Album.Images),
		Artists:    artistNames(w.Artists),
		AlbumName:  w.Album.Name,
		DurationMS: w.DurationMS,
	}
}

// ParseProfile maps a /me payload to a [Profile].
func ParseProfile(data []byte) (Profile, error) {
	var w wireProfile
	if err := json.Unmarshal(data, &w); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return Profile{
		ID:          w.ID,
		DisplayName: w.DisplayName,
		Email:       w.Email,
		Country:     w.Country,
		Product:     w.Product,
		ImageURL:    firstImage(w.Images),
	}, nil
}

// ParseArtist maps an /artist payload to an [Artist].
func ParseArtist(data []byte) (Artist, error) {
	var w wireArtist
	if err := json.Unmarshal(data, &w); err != nil {
		return Artist{}, fmt.Errorf("failed to decode artist: %w", err)
	}
	return mapArtist(w), nil
}

// ParseAlbum maps an /album payload to an [Album].
func ParseAlbum(data []byte) (Album, error) {
	var w wireAlbum
	if err := json.Unmarshal(data, &w); err != nil {
		return Album{}, fmt.Errorf("failed to decode album: %w", err)
	}
	return mapAlbum(w), nil
}

// ParseTrack maps a /track payload to a [Track].
func ParseTrack(data []byte) (Track, error) {
	var w wireTrack
	if err := json.Unmarshal(data, &w); err != nil {
		return Track{}, fmt.Errorf("failed to decode track: %w", err)
	}
	return mapTrack(w), nil
}

// ParseSearchArtists maps a search payload's artists.items to [Artist] values.
func ParseSearchArtists(data []byte) ([]Artist, error) {
	var payload struct {
		Artists struct {
			Items []wireArtist `json:"items"`
		} `json:"artists"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode artist search: %w", err)
	}

	artists := make([]Artist, 0, len(payload.Artists.Items))
	for _, w := range payload.Artists.Items {
		artists = append(artists, mapArtist(w))
	}
	return artists, nil
}

// ParseSearchAlbums maps a search payload's albums.items to [Album] values.
func ParseSearchAlbums(data []byte) ([]Album, error) {
	var payload struct {
		Albums struct {
			Items []wireAlbum `json:"items"`
		} `json:"albums"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode album search: %w", err)
	}

	albums := make([]Album, 0, len(payload.Albums.Items))
	for _, w := range payload.Albums.Items {
		albums = append(albums, mapAlbum(w))
	}
	return albums, nil
}

// ParseSearchTracks maps a search payload's tracks.items to [Track] values.
func ParseSearchTracks(data []byte) ([]Track, error) {
	var payload struct {
		Tracks struct {
			Items []wireTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode track search: %w", err)
	}

	tracks := make([]Track, 0, len(payload.Tracks.Items))
	for _, w := range payload.Tracks.Items {
		tracks = append(tracks, mapTrack(w))
	}
	return tracks, nil
}

// ParseTrackList maps an album-tracks payload's items to [Track] values.
func ParseTrackList(data []byte) ([]Track, error) {
	var payload struct {
		Items []wireTrack `json:"items"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode track list: %w", err)
	}

	tracks := make([]Track, 0, len(payload.Items))
	for _, w := range payload.Items {
		tracks = append(tracks, mapTrack(w))
	}
	return tracks, nil
}
