// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package github implements remote.Store on top of a GitHub repository:
// directories are folders, blobs are objects, writes go through the Contents
// API. Object ids are locators of the form "owner/repo@ref:path".
package github

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"github.com/walteh/batchrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

func init() {
	remote.Register("github", New)
}

// 🎯 Store implements the remote store interface for GitHub
type Store struct {
	client *github.Client
	logger zerolog.Logger
}

// 🏭 New creates a new GitHub-backed store
func New(ctx context.Context) (remote.Store, error) {
	logger := zerolog.Ctx(ctx)

	// Get token from environment
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return nil, errors.New("GITHUB_TOKEN environment variable not set")
	}

	// Create OAuth2 client
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Store{
		client: github.NewClient(tc),
		logger: *logger,
	}, nil
}

// 📍 locator addresses one path within a repository at a ref
type locator struct {
	owner string
	repo  string
	ref   string
	path  string
}

// 🔍 parseLocator parses an "owner/repo@ref:path" object id
func parseLocator(id string) (locator, error) {
	rest := id
	var loc locator

	if i := strings.Index(rest, ":"); i >= 0 {
		loc.path = strings.Trim(rest[i+1:], "/")
		rest = rest[:i]
	}
	if i := strings.Index(rest, "@"); i >= 0 {
		loc.ref = rest[i+1:]
		rest = rest[:i]
	} else {
		loc.ref = "main"
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 {
		return locator{}, errors.Errorf("invalid locator: %s", id)
	}
	loc.owner = parts[len(parts)-2]
	loc.repo = parts[len(parts)-1]
	return loc, nil
}

// 🔗 child returns the locator for a name beneath this one
func (l locator) child(name string) locator {
	c := l
	c.path = path.Join(l.path, name)
	return c
}

// 📝 String renders the locator back into an object id
func (l locator) String() string {
	return fmt.Sprintf("%s/%s@%s:%s", l.owner, l.repo, l.ref, l.path)
}

// 📂 List returns the objects in a folder
func (s *Store) List(ctx context.Context, folderID string, opts remote.ListOptions) ([]remote.Object, error) {
	loc, err := parseLocator(folderID)
	if err != nil {
		return nil, errors.Errorf("parsing folder id: %w", err)
	}

	_, entries, _, err := s.client.Repositories.GetContents(ctx, loc.owner, loc.repo, loc.path, &github.RepositoryContentGetOptions{
		Ref: loc.ref,
	})
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", loc.path, err)
	}

	objects := make([]remote.Object, 0, len(entries))
	for _, entry := range entries {
		kind := remote.KindFile
		if entry.GetType() == "dir" {
			kind = remote.KindFolder
		}
		objects = append(objects, remote.Object{
			ID:   loc.child(entry.GetName()).String(),
			Name: entry.GetName(),
			Kind: kind,
			Size: int64(entry.GetSize()),
		})
	}

	return remote.FilterObjects(objects, opts), nil
}

// 📥 Download fetches an object into a local file
func (s *Store) Download(ctx context.Context, objectID string, destination string) error {
	loc, err := parseLocator(objectID)
	if err != nil {
		return errors.Errorf("parsing object id: %w", err)
	}

	content, _, _, err := s.client.Repositories.GetContents(ctx, loc.owner, loc.repo, loc.path, &github.RepositoryContentGetOptions{
		Ref: loc.ref,
	})
	if err != nil {
		return errors.Errorf("getting %s: %w", loc.path, err)
	}

	data, err := content.GetContent()
	if err != nil {
		return errors.Errorf("decoding content: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return errors.Errorf("creating destination directory: %w", err)
	}
	if err := os.WriteFile(destination, []byte(data), 0644); err != nil {
		return errors.Errorf("writing destination: %w", err)
	}

	return nil
}

// 📤 Upload stores a local file beneath a folder
func (s *Store) Upload(ctx context.Context, localPath string, folderID string) (string, error) {
	loc, err := parseLocator(folderID)
	if err != nil {
		return "", errors.Errorf("parsing folder id: %w", err)
	}
	target := loc.child(filepath.Base(localPath))

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", errors.Errorf("reading local file: %w", err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("batchrc: upload %s", target.path)),
		Content: data,
		Branch:  github.String(target.ref),
	}

	// An existing blob needs its SHA for an update
	existing, _, _, err := s.client.Repositories.GetContents(ctx, target.owner, target.repo, target.path, &github.RepositoryContentGetOptions{
		Ref: target.ref,
	})
	if err == nil && existing != nil {
		opts.SHA = existing.SHA
		if _, _, err := s.client.Repositories.UpdateFile(ctx, target.owner, target.repo, target.path, opts); err != nil {
			return "", errors.Errorf("updating %s: %w", target.path, err)
		}
		return target.String(), nil
	}

	if _, _, err := s.client.Repositories.CreateFile(ctx, target.owner, target.repo, target.path, opts); err != nil {
		return "", errors.Errorf("creating %s: %w", target.path, err)
	}

	s.logger.Debug().Str("path", target.path).Msg("uploaded object")
	return target.String(), nil
}

// 📁 CreateFolder materializes a directory. Git has no empty directories, so
// the folder appears with a .keep object beneath it.
func (s *Store) CreateFolder(ctx context.Context, name string, parentID string) (string, error) {
	loc, err := parseLocator(parentID)
	if err != nil {
		return "", errors.Errorf("parsing parent id: %w", err)
	}
	folder := loc.child(name)
	keep := folder.child(".keep")

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("batchrc: create folder %s", folder.path)),
		Content: []byte{},
		Branch:  github.String(folder.ref),
	}
	if _, _, err := s.client.Repositories.CreateFile(ctx, keep.owner, keep.repo, keep.path, opts); err != nil {
		return "", errors.Errorf("creating folder %s: %w", folder.path, err)
	}

	return folder.String(), nil
}

// 🔎 FindFolder looks a directory up by name beneath a parent
func (s *Store) FindFolder(ctx context.Context, name string, parentID string) (string, bool, error) {
	objects, err := s.List(ctx, parentID, remote.ListOptions{Kind: remote.KindFolder})
	if err != nil {
		return "", false, err
	}
	for _, obj := range objects {
		if obj.Name == name {
			return obj.ID, true, nil
		}
	}
	return "", false, nil
}

// 🗑️ Delete removes a blob
func (s *Store) Delete(ctx context.Context, objectID string) error {
	loc, err := parseLocator(objectID)
	if err != nil {
		return errors.Errorf("parsing object id: %w", err)
	}

	content, _, _, err := s.client.Repositories.GetContents(ctx, loc.owner, loc.repo, loc.path, &github.RepositoryContentGetOptions{
		Ref: loc.ref,
	})
	if err != nil {
		return errors.Errorf("getting %s: %w", loc.path, err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("batchrc: delete %s", loc.path)),
		SHA:     content.SHA,
		Branch:  github.String(loc.ref),
	}
	if _, _, err := s.client.Repositories.DeleteFile(ctx, loc.owner, loc.repo, loc.path, opts); err != nil {
		return errors.Errorf("deleting %s: %w", loc.path, err)
	}

	return nil
}
