package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"grocery_server_go/apperr"
	"grocery_server_go/models"
)

// Префикс всех ключей: image/<userID>/<filePath>/<имя файла>.
const imagePrefix = "image"

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".heic": true}

// UploadResult - итог загрузки набора фото. Files идут в порядке Images.Sources.
type UploadResult struct {
	Files []models.UploadedFile
}

// Failed возвращает количество файлов, которые не удалось загрузить.
func (r UploadResult) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Err объединяет ошибки отдельных файлов в одну KindUnconfirmed. nil - все файлы загружены.
func (r UploadResult) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.URI, f.Err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return apperr.Wrap(errors.Join(errs...), apperr.KindUnconfirmed, "Upload",
		fmt.Sprintf("%d of %d files were not uploaded", len(errs), len(r.Files)))
}

// LocalBlobStore хранит фото задач в каталоге на диске. Файлы раздаются через /uploads/.
type LocalBlobStore struct {
	root          string
	publicBaseURL string
}

// NewLocalBlobStore создает хранилище; каталог создается при необходимости.
func NewLocalBlobStore(root, publicBaseURL string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог хранилища %s: %w", root, err)
	}
	return &LocalBlobStore{
		root:          root,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Root возвращает каталог, который раздается по /uploads/.
func (s *LocalBlobStore) Root() string {
	return s.root
}

// BlobKey строит ключ файла по владельцу, токену пути и URI источника.
func BlobKey(userID, filePath, uri string) (string, error) {
	name := lastSegment(uri)
	if err := checkSegment("file name", name); err != nil {
		return "", err
	}
	if strings.HasPrefix(name, ".") {
		return "", apperr.New(apperr.KindValidation, "storage", fmt.Sprintf("invalid file name %q", name))
	}
	if !imageExtensions[strings.ToLower(path.Ext(name))] {
		name += ".jpg"
	}
	return path.Join(imagePrefix, userID, filePath, name), nil
}

// Upload загружает все фото параллельно и дожидается каждого.
// Ошибка одного файла не прерывает остальные: она попадает в UploadResult.
// Возвращаемая ошибка - только для запроса целиком (неверный пользователь или путь, отмена).
func (s *LocalBlobStore) Upload(ctx context.Context, userID string, images models.Images) (UploadResult, error) {
	if err := checkSegment("user id", userID); err != nil {
		return UploadResult{}, err
	}
	if err := checkSegment("file path", images.FilePath); err != nil {
		return UploadResult{}, err
	}

	keys, keyErrs := batchKeys(userID, images)
	result := UploadResult{Files: make([]models.UploadedFile, len(images.Sources))}
	var wg sync.WaitGroup
	for i, src := range images.Sources {
		result.Files[i] = models.UploadedFile{URI: src.URI(), Key: keys[i], Err: keyErrs[i]}
		if keyErrs[i] != nil {
			log.Printf("Upload: не удалось загрузить %s: %v", src.URI(), keyErrs[i])
			continue
		}
		wg.Add(1)
		go func(file *models.UploadedFile, src models.ImageSource) {
			defer wg.Done()
			file.Err = s.uploadOne(ctx, file.Key, src)
			if file.Err != nil {
				log.Printf("Upload: не удалось загрузить %s: %v", file.URI, file.Err)
				file.Key = ""
			} else {
				log.Printf("Upload: файл %s сохранен как %s", file.URI, file.Key)
			}
		}(&result.Files[i], src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, apperr.Wrap(err, apperr.KindTransient, "Upload", "upload interrupted")
	}
	return result, nil
}

// batchKeys выдает ключи всем источникам набора. Совпадающие имена внутри набора получают
// суффикс "-2", "-3" и т.д. в порядке Sources, поэтому повторная загрузка того же набора
// пишет в те же ключи.
func batchKeys(userID string, images models.Images) ([]string, []error) {
	keys := make([]string, len(images.Sources))
	errs := make([]error, len(images.Sources))
	used := make(map[string]bool, len(images.Sources))
	for i, src := range images.Sources {
		key, err := BlobKey(userID, images.FilePath, src.URI())
		if err != nil {
			errs[i] = err
			continue
		}
		unique := key
		ext := path.Ext(key)
		base := strings.TrimSuffix(key, ext)
		for n := 2; used[strings.ToLower(unique)]; n++ {
			unique = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		used[strings.ToLower(unique)] = true
		keys[i] = unique
	}
	return keys, errs
}

func (s *LocalBlobStore) uploadOne(ctx context.Context, key string, src models.ImageSource) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := src.Open()
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Пишем во временный файл рядом и переименовываем: ListAndResolve не видит недописанных файлов.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// ListAndResolve возвращает URL всех файлов под image/<userID>/<filePath>, отсортированные по имени.
// Отсутствующий каталог - пустой список.
func (s *LocalBlobStore) ListAndResolve(ctx context.Context, userID, filePath string) ([]string, error) {
	if err := checkSegment("user id", userID); err != nil {
		return nil, err
	}
	if err := checkSegment("file path", filePath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.KindTransient, "ListAndResolve", "listing interrupted")
	}

	dir := filepath.Join(s.root, imagePrefix, userID, filePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, apperr.Wrap(err, apperr.KindPermissionDenied, "ListAndResolve", "storage rejected listing")
		}
		return nil, apperr.Wrap(err, apperr.KindTransient, "ListAndResolve", "failed to read storage")
	}

	urls := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		urls = append(urls, s.resolve(path.Join(imagePrefix, userID, filePath, entry.Name())))
	}
	sort.Strings(urls)
	return urls, nil
}

func (s *LocalBlobStore) resolve(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicBaseURL + "/uploads/" + strings.Join(parts, "/")
}

// lastSegment - последний сегмент пути URI без query и fragment.
func lastSegment(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		uri = u.Path
	}
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		uri = uri[i+1:]
	}
	return uri
}

func checkSegment(what, s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return apperr.New(apperr.KindValidation, "storage", fmt.Sprintf("invalid %s %q", what, s))
	}
	return nil
}
