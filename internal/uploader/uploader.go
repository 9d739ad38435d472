package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"pkgupload/internal/logger"
	"pkgupload/internal/model"
)

const DefaultPollInterval = 1 * time.Second

// Tooling - операции Tooling API, которые нужны для загрузки.
type Tooling interface {
	FindPackages(ctx context.Context) ([]model.Package, error)
	CreateUploadRequest(ctx context.Context, packageID, versionName string) (string, error)
	RetrieveUploadRequest(ctx context.Context, id string) (model.UploadRequest, error)
	FindPackageVersion(ctx context.Context, id string) (model.PackageVersion, error)
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Options struct {
	PollInterval time.Duration // по умолчанию DefaultPollInterval
	MaxPolls     int           // 0 - без ограничения
	Sleep        SleepFunc     // по умолчанию Sleep
	Report       io.Writer     // текстовый отчет о ходе загрузки, по умолчанию io.Discard
}

// Uploader отправляет один запрос на загрузку бета-версии и дожидается его завершения.
type Uploader struct {
	api  Tooling
	opts Options
}

func New(api Tooling, opts Options) *Uploader {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Report == nil {
		opts.Report = io.Discard
	}
	return &Uploader{api: api, opts: opts}
}

// Sleep ждет d или отмены ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	tm := time.NewTimer(d)
	defer tm.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tm.C:
		return nil
	}
}

// Check проверяет, что в орге ровно один пакет, и возвращает его.
func (u *Uploader) Check(ctx context.Context) (model.Package, error) {
	pkgs, err := u.api.FindPackages(ctx)
	if err != nil {
		return model.Package{}, err
	}
	if len(pkgs) != 1 {
		return model.Package{}, fmt.Errorf("%w: found %d", model.ErrNotSinglePackage, len(pkgs))
	}
	return pkgs[0], nil
}

// Submit создает запрос на загрузку бета-версии единственного пакета орга.
// Если пакетов не ровно один, запрос не создается.
func (u *Uploader) Submit(ctx context.Context, versionName string) (string, error) {
	log := logger.FromContext(ctx).With("op", "submit", "versionName", versionName)

	pkg, err := u.Check(ctx)
	if err != nil {
		return "", err
	}

	id, err := u.api.CreateUploadRequest(ctx, pkg.ID, versionName)
	if err != nil {
		return "", err
	}

	log.Debug("upload request created", "packageID", pkg.ID, "requestID", id)
	u.printf("***** package submitted *****\n")
	u.printf("package %s (%s), upload request %s\n", pkg.ID, pkg.Name, id)
	return id, nil
}

// AwaitCompletion опрашивает запрос с фиксированным интервалом, пока его статус
// не станет терминальным. Ожидание предшествует каждому запросу статуса.
// Отсутствие статуса - фатальная ошибка, повторов не будет.
func (u *Uploader) AwaitCompletion(ctx context.Context, requestID string) (model.UploadRequest, error) {
	log := logger.FromContext(ctx).With("op", "awaitCompletion", "requestID", requestID)

	u.printf("Checking in %v for %s\n", u.opts.PollInterval, requestID)

	for attempt := 1; ; attempt++ {
		if err := u.opts.Sleep(ctx, u.opts.PollInterval); err != nil {
			return model.UploadRequest{}, err
		}

		req, err := u.api.RetrieveUploadRequest(ctx, requestID)
		if err != nil {
			return model.UploadRequest{}, err
		}

		u.printf("Status: %s\n", req.Status)
		log.Debug("status fetched", "attempt", attempt, "status", req.Status)

		if req.Status == "" {
			return req, fmt.Errorf("%w on upload request %s", model.ErrStatusMissing, requestID)
		}
		if req.Status.IsTerminal() {
			if !req.Status.IsKnown() {
				log.Warn("unknown status treated as terminal", "status", req.Status)
			}
			return req, nil
		}

		if u.opts.MaxPolls > 0 && attempt >= u.opts.MaxPolls {
			return req, fmt.Errorf("%w: %d polls, last status %s", model.ErrPollLimit, attempt, req.Status)
		}

		u.printf("Checking again... status: %s\n", req.Status)
	}
}

// Resolve возвращает версию пакета, созданную успешным запросом.
// Для любого другого терминального статуса возвращает *model.UploadError.
func (u *Uploader) Resolve(ctx context.Context, req model.UploadRequest) (model.PackageVersion, error) {
	u.printf("***** package upload request full details ****\n")
	u.printDetails(ctx, req)

	if req.Status != model.StatusSuccess {
		return model.PackageVersion{}, &model.UploadError{Request: req}
	}

	version, err := u.api.FindPackageVersion(ctx, req.MetadataPackageVersionID)
	if err != nil {
		return model.PackageVersion{}, err
	}

	u.printf("***** package uploaded *****\n")
	u.printDetails(ctx, version)
	u.printf("INSTALL URL: %s\n", version.InstallURL())
	return version, nil
}

// Run загружает бета-версию versionName и дожидается результата.
func (u *Uploader) Run(ctx context.Context, versionName string) (model.PackageVersion, error) {
	id, err := u.Submit(ctx, versionName)
	if err != nil {
		return model.PackageVersion{}, err
	}

	req, err := u.AwaitCompletion(ctx, id)
	if err != nil {
		return model.PackageVersion{}, err
	}

	return u.Resolve(ctx, req)
}

func (u *Uploader) printf(format string, args ...any) {
	fmt.Fprintf(u.opts.Report, format, args...)
}

func (u *Uploader) printDetails(ctx context.Context, v any) {
	buf, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		logger.FromContext(ctx).Warn("marshal details failed", "error", err)
		return
	}
	u.printf("%s\n", buf)
}
